// Package services sits between the transports and the runners. The HTTP
// handlers and the CLI both go through it, so a run started from either
// one resolves credentials and defaults the same way.
package services
