// Package session tracks the authenticated identity the watcher acts for.
//
// The Authority is the single source of truth for signed-in state: the CLI
// signs a session in after login, the channel manager observes transitions,
// and a credential rejected by the backend is reported back as a sign-out.
// Credentials persist across CLI invocations in a small SQLite database so
// `podwatch watch` can resume a session started by `podwatch login`.
package session
