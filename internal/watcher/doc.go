// Package watcher composes the session store, the push channel syncer, and
// the notifier into a single long-running process with flock-based locking to
// prevent multiple concurrent instances. It implements the IPC backend the
// CLI talks to.
package watcher
