// Package healthcheck implements the periodic store health check. Every tick
// opens its own connection, evaluates a trivial script, logs the result under
// a fresh correlation id and closes the connection again.
package healthcheck
