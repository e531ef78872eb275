// Package operations runs the audit and report pipelines as single
// background tasks and publishes their state.
//
// Runner allows one task at a time; a second start is rejected with a
// CONFLICT error. Tasks report through a ProgressSink. The StatusBroadcaster
// applies every update sequentially and sends the full RunSnapshot to the
// websocket hub, so clients never see a partial state. ProgressTracker turns
// fractional per-item progress into monotonic whole percentages.
package operations
