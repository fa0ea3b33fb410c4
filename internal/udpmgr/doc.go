// Package udpmgr shares UDP sockets between independent listeners in one
// process.
//
// Search clients, beacon senders and server listeners frequently want the
// same local endpoint (for example 0.0.0.0:5076). Instead of each opening its
// own socket and racing for the bind, they subscribe to a Manager:
//
//   - The first Subscribe for a local address binds one OS socket and starts
//     its receive loop.
//   - Later subscribes for the same address share that socket; no second
//     bind happens.
//   - Every datagram read from the socket is delivered to every listener
//     registered on it, in registration order, before the next datagram is
//     read.
//   - Closing the last Listener of a socket closes the socket. A later
//     Subscribe binds a fresh one.
//   - Manager.Close force-closes every socket and waits for all receive
//     loops, leaving no descriptors behind.
//
// # Failure containment
//
// A Handler that returns an error or panics is logged and counted; delivery
// continues with the next listener and the receive loop keeps running.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. A Handler may close its
// own Listener (or any other) while being dispatched. Handlers must not call
// Manager.Close, which waits for the receive loop that is running them.
package udpmgr
