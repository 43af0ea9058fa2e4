// Package channel maintains the push-channel connection to the backend.
//
// The Manager owns at most one live transport per signed-in session and runs
// an explicit state machine: idle -> connecting -> connected -> disconnected
// -> connecting, returning to idle on sign-out from any state. Reconnects use
// bounded exponential backoff; once the attempt budget is exhausted the
// manager stays disconnected until the next sign-in resets the counter.
//
// Inbound messages are delivered on a single ordered frame channel. Messages
// read on different transports (before and after a reconnect) carry no
// relative ordering guarantee; the job store's last-write-wins policy makes
// that acceptable.
package channel
