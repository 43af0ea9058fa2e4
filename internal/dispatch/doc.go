// Package dispatch turns raw push-channel messages into job store updates
// and ephemeral notifications.
package dispatch
