package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ict-ryuma/document-ocr/internal/common"
)

// Attempt records one adapter's failure.
type Attempt struct {
	Adapter string
	Err     error
}

// AllAdaptersFailedError is returned when no adapter produced a result.
type AllAdaptersFailedError struct {
	Attempts []Attempt
}

func (e *AllAdaptersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all extraction adapters failed: no adapters configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Adapter, a.Err))
	}
	return "all extraction adapters failed: " + strings.Join(parts, "; ")
}

func (e *AllAdaptersFailedError) Unwrap() []error {
	errs := []error{common.ErrAllAdaptersFailed}
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}
