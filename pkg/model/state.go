package model

// JobStatus is the status string reported by the remote download service.
// The service may report values outside the known set; those are treated
// as in-progress.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusPending     JobStatus = "pending"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusComplete    JobStatus = "complete"
	JobStatusFailed      JobStatus = "failed"
	JobStatusUnknown     JobStatus = "unknown"
)

// String returns the string representation of the job status.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further polling should happen.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusComplete, JobStatusFailed:
		return true
	}
	return false
}

// RecordState is the state stored in a persisted Record.
type RecordState string

const (
	RecordStatePending RecordState = "dl_pending"
	RecordStateDone    RecordState = "dl_done"
)

// String returns the string representation of the record state.
func (s RecordState) String() string {
	return string(s)
}
