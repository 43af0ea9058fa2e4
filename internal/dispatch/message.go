package dispatch

// Message kinds recognized on the push channel. Anything else is dropped
// with a diagnostic log so future server versions cannot crash the stream.
const (
	KindNotification     = "notification"
	KindConversionStatus = "conversionStatus"
	KindPodcastStatus    = "podcastStatus"
)

type envelope struct {
	Kind string `json:"kind"`
}

// notificationMessage is a generic server-originated notice.
type notificationMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// statusData carries the kind-specific payload of a job status message.
type statusData struct {
	Title      string `json:"title"`
	Error      string `json:"error"`
	AudioURL   string `json:"audioUrl"`
	EpisodeURL string `json:"episodeUrl"`
}

// conversionStatusMessage reports progress of an audio-clip conversion job.
type conversionStatusMessage struct {
	AudioID string     `json:"audioId"`
	Status  string     `json:"status"`
	Data    statusData `json:"data"`
}

// podcastStatusMessage reports progress of a podcast processing job.
type podcastStatusMessage struct {
	PodcastID string     `json:"podcastId"`
	Status    string     `json:"status"`
	Data      statusData `json:"data"`
}
