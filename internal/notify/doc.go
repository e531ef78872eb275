// Package notify delivers run results to a Telegram chat.
//
// The notifier is registered as a runner finish hook. A completed run sends
// its completion message followed by every workbook it produced; a failed
// run sends the user-facing error message only. Delivery problems are
// logged and never change the outcome of the run.
package notify
