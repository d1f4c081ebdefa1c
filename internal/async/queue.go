package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/estimates"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("import queue is shutting down")

// Job is one file waiting to be imported.
type Job struct {
	ID          uuid.UUID
	Path        string
	VendorName  string // optional override
	SubmittedAt time.Time
}

// Result is reported once per job after the worker finishes it.
type Result struct {
	Job        Job
	Status     constants.JobStatus
	EstimateID int64
	Items      int
	Method     string
	Err        error
	Elapsed    time.Duration
}

// Importer extracts and stores one estimate file.
type Importer interface {
	Import(ctx context.Context, path, vendorOverride string) (estimates.ImportResult, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) (uuid.UUID, error)
	Shutdown(ctx context.Context) error
}
