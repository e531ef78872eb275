// Package websocket streams run snapshots to the browser. The Hub
// implements the broadcast side of operations.StatusBroadcaster; each
// connected Client gets every snapshot plus the latest one on connect.
package websocket
