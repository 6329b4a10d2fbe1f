package model

import "time"

// StatusRecord is the body of GET /status on the remote download service.
type StatusRecord struct {
	ID                 string    `json:"id"`
	Status             JobStatus `json:"status"`
	PlaylistTrackCount int       `json:"playlist_track_count"`
	PlaylistTrackDone  int       `json:"playlist_track_done"`
}

// UnknownStatus is the synthetic record used when the remote service
// answers a status query with a non-2xx code.
func UnknownStatus() StatusRecord {
	return StatusRecord{Status: JobStatusUnknown}
}

// IsPlaylist reports whether the record describes a multi-track job.
func (r StatusRecord) IsPlaylist() bool {
	return r.PlaylistTrackCount > 0
}

// AckAccepted is the state the download service acknowledges with.
const AckAccepted = "ACK"

// Ack is the body of GET /download on the remote download service.
type Ack struct {
	State string `json:"state"`
}

// Record is a persisted job entry keyed by the sanitized job key.
type Record struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name,omitempty" yaml:"name,omitempty"`
	Link      string      `json:"link,omitempty" yaml:"link,omitempty"`
	State     RecordState `json:"state" yaml:"state"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" yaml:"updated_at"`
}

// Notification is delivered to the active window when a job resolves.
// Exactly one of Complete and Error is set.
type Notification struct {
	ID       string `json:"id"`
	Complete bool   `json:"complete,omitempty"`
	Error    bool   `json:"error,omitempty"`
}

// Event returns the SSE event name for the notification.
func (n Notification) Event() string {
	if n.Complete {
		return "complete"
	}
	return "error"
}
