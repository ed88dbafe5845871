// Package stream manages the single full-duplex connection to the
// market-data server: connection lifecycle, the subscription registry,
// the outbound queue, reconnection with exponential backoff, and
// demultiplexing of inbound messages to typed listeners.
//
// Subscriptions are desired state, not connection state: the registry is
// replayed after every reconnect. Send is safe in any connection state;
// messages sent while disconnected are queued and drained in FIFO order
// once the connection opens, before subscription replay.
package stream
