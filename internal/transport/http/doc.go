// Package http implements the status API. Handlers only parse requests
// and format responses; runs and credentials are handled by the services
// package.
//
// # Endpoints
//
//	GET    /api/health          server status and the latest run
//	POST   /api/runs/check      start a journal check
//	POST   /api/runs/report     start the summary reports
//	GET    /api/runs/current    snapshot of the latest run
//	GET    /api/credentials     whether a login is stored
//	PUT    /api/credentials     store a login
//	DELETE /api/credentials     forget the stored login
//
// # Error Handling
//
// Every error is an RFC 7807 problem document:
//
//	{
//	    "type": "/errors/run/already-running",
//	    "title": "Conflict",
//	    "status": 409,
//	    "detail": "Проверка уже выполняется. Дождитесь её завершения.",
//	    "instance": "/api/runs/check",
//	    "error_code": "CONFLICT"
//	}
//
// Progress of a started run is pushed over the websocket rather than
// polled.
package http
