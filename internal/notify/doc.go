// Package notify surfaces job transitions as transient user notifications.
//
// Notifications are fire-and-forget: the dispatcher publishes an event,
// delivery is attempted once via ntfy when configured, and no history is
// kept. Failures to deliver are logged by callers, never retried.
package notify
