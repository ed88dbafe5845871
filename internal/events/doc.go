// Package events provides the in-process event bus used for optimistic
// UI-side notifications. It is fully decoupled from the network stream:
// emitting never blocks on I/O and listener registration survives
// connection drops.
package events
