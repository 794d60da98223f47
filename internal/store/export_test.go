package store

var HeartbeatTimeout = heartbeatTimeout
