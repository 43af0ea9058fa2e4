// Package jobstore caches the latest known status of server-side jobs.
//
// The store is deliberately a last-write-wins cache rather than a log: the
// newest message about a job is authoritative in full, which makes the
// ordering gap across a reconnect harmless. Entries live until a consumer
// evicts them or the session ends.
package jobstore
