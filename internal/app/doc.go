// Package app wires the components together and owns their lifecycle.
//
// New builds everything a run needs: logging, telemetry, the credential
// store, the feature gate, the runners, optional Telegram and Google
// Sheets delivery, and the HTTP router. The command line tool uses the
// services directly; the server additionally calls Serve, which runs the
// websocket hub and the HTTP server until the context is cancelled.
//
// # Graceful Shutdown
//
// Cancelling the context passed to Serve stops accepting requests, waits
// up to server.shutdown_timeout for active ones and disconnects websocket
// clients. A run that is in progress keeps going until Close is called;
// runs cannot be cancelled once started.
//
// The package never calls os.Exit; errors are returned to main.
package app
