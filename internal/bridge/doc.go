// Package bridge provides the plugin side of the host message bridge.
//
// The host and the plugin exchange JSON messages of the form
//
//	{"type": "<domain>.<action>", "payload": {...}}
//
// over a one-way channel in each direction. The bridge turns that into
// awaitable calls: every request carries a generated requestId, and the
// call returns when a message of type "<domain>.<action>.response" with the
// same requestId arrives.
//
// # Architecture
//
//   - Client: pending request table, read pump, typed request helpers
//   - Transport: the injected message channel (WebSocket, line-delimited
//     stream, or the in-memory pipe in bridgetest)
//   - WorkspaceChanges: unsolicited "workspace.changed" notifications,
//     delivered on a channel created with the client
//
// Basic Usage
//
//	transport, err := bridge.DialWebSocket(ctx, "ws://127.0.0.1:7420/bridge", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := bridge.NewClient(transport, bridge.DefaultConfig())
//	client.Start(ctx)
//	defer client.Close()
//
//	res, err := client.ReadDirectory(ctx, "/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !res.Success {
//	    fmt.Println("Error:", res.Error)
//	}
//
// # Failures
//
// Host-reported failures never become Go errors: they arrive as
// Success == false with the host's message in Error, and callers must check
// it. Go errors are returned only when the transport fails, the client is
// closed, the context ends, or Config.RequestTimeout elapses.
//
// With RequestTimeout set to zero a request whose response never arrives stays
// in the pending table until its context is cancelled. See Client.Pending.
package bridge
