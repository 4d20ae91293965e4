// Package server exposes the waitroom tools over HTTP and websocket.
//
// Short calls (send_message, check_status) work over plain HTTP POSTs to
// /tools/{name}. register_and_wait can be called the same way as a classic
// long-poll, but a client that wants heartbeats connects to /ws and sends
// a request frame:
//
//	{"id": 1, "method": "register_and_wait", "params": {"agent_name": "reviewer"}}
//
// While the wait is open the server pushes progress frames whose
// progressToken is the request id:
//
//	{"method": "notifications/progress",
//	 "params": {"progressToken": 1, "progress": 0.25, "total": 1,
//	            "message": "Heartbeat #1 - waiting for work (30s/120s)"}}
//
// and finally {"id": 1, "result": {...}} or {"id": 1, "error": {...}}.
// Closing the socket cancels the wait.
//
// [Client] wraps both transports for the CLI.
package server
