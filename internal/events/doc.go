// Package events decouples request handling from background work.
//
// The HTTP layer emits a TaskRequestEvent when a video needs materials; a
// handler registered by the task package turns it into a queued task. Neither
// side imports the other.
package events
