package constants

// JobStatus is the terminal state of a queued import.
type JobStatus string

const (
	JobStatusSaved  JobStatus = "SAVED"
	JobStatusFailed JobStatus = "FAILED"
)
