package ipc

import "time"

// Job is the wire representation of a cached job status.
type Job struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Title       string    `json:"title,omitempty"`
	Error       string    `json:"error,omitempty"`
	ArtifactURL string    `json:"artifactUrl,omitempty"`
	Seq         uint64    `json:"seq"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// PingRequest checks that the watcher is alive.
type PingRequest struct{}

// PingResponse reports the watcher process.
type PingResponse struct {
	PID     int    `json:"pid"`
	Version string `json:"version"`
}

// StatusRequest asks for a watcher snapshot.
type StatusRequest struct{}

// StatusResponse describes the watcher, the push channel, and the cache.
type StatusResponse struct {
	PID           int            `json:"pid"`
	SignedIn      bool           `json:"signedIn"`
	Email         string         `json:"email,omitempty"`
	Connected     bool           `json:"connected"`
	ChannelState  string         `json:"channelState"`
	SessionDBPath string         `json:"sessionDbPath"`
	LockPath      string         `json:"lockPath"`
	JobCount      int            `json:"jobCount"`
	Conversions   map[string]int `json:"conversions,omitempty"`
	Podcasts      map[string]int `json:"podcasts,omitempty"`
}

// JobsRequest lists cached job statuses, optionally filtered by kind.
type JobsRequest struct {
	Kinds []string `json:"kinds,omitempty"`
}

// JobsResponse carries the cached statuses in arrival order.
type JobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobRequest fetches a single cached job status.
type JobRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// JobResponse carries one cached status.
type JobResponse struct {
	Job Job `json:"job"`
}

// ClearJobRequest drops one cached job status.
type ClearJobRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ClearJobResponse reports whether a status was removed.
type ClearJobResponse struct {
	Removed bool `json:"removed"`
}

// SignInRequest installs a session in the running watcher.
type SignInRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	DeviceID string `json:"deviceId"`
}

// SignInResponse acknowledges the installed session.
type SignInResponse struct {
	SignedIn bool `json:"signedIn"`
}

// SignOutRequest ends the watcher session.
type SignOutRequest struct{}

// SignOutResponse acknowledges the ended session.
type SignOutResponse struct {
	SignedOut bool `json:"signedOut"`
}

// TestNotificationRequest asks the watcher to publish a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome of the test publish.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
