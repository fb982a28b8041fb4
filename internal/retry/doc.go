// Package retry re-drives videos left completed_with_warning. A Coordinator
// pass scans for them, dispatches each to the processor through a bounded
// worker pool and reports a Summary; a Scheduler runs passes on a cron
// schedule.
package retry
