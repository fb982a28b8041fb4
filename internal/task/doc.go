// Package task runs first-pass materials generation in the background.
// Videos are the durable task records: a pending or stuck processing video
// is a task to run, so work survives restarts without a separate task table.
// The worker pool here is also what the retry coordinator dispatches through.
package task
