// Package websocket provides WebSocket transport for solver progress.
//
// The websocket package implements:
//   - Run-aware WebSocket subscriptions
//   - Broadcasting of run lifecycle and progress events
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a dedicated
// pair of goroutines that read, write and clean up.
//
// Message Protocol:
//
// The stream is one-way. Every outgoing message is a JSON object:
//
//	{"run_id": "...", "event": "group_finished", "data": {...}, "timestamp": "..."}
//
// Subscriptions:
//
// Clients pick a run with the run query parameter (/ws?run=<id>). Without it
// the client subscribes to every run.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Close()
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("run"))
//	})
//
// Hub implements service.Notifier, so it can be handed to the solver service
// directly.
package websocket
