// Package store defines the connection abstraction used to talk to Redis and
// implements it on top of go-redis. Besides opening connections and running
// scripts it reports connectivity loss and restoration to registered
// listeners, driven by a heartbeat and by the outcome of every command.
package store
