// Package config resolves the process configuration from environment
// variables and command-line arguments. The Redis connection string comes
// from REDIS_CONNECTIONSTRING or, failing that, the first argument; the
// schedule of retries and health checks can be tuned through
// REDIS_WATCHER_* variables.
package config
