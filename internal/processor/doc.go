// Package processor drives a single video through the materials state
// machine. Process handles videos awaiting retry; ProcessInitial handles the
// first generation attempt for a pending video. Both classify provider
// failures once and let only the resulting error kind decide what happens
// to the video.
package processor
