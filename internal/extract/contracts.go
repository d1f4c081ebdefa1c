package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ict-ryuma/document-ocr/internal/entity"
)

// Adapter names, also used as the extraction method.
const (
	NameVision   = "vision"
	NameDocument = "document"
	NameDummy    = "dummy"
)

// Adapter wraps one recognition backend: file -> raw estimate.
type Adapter interface {
	Name() string
	Available() bool
	Extract(ctx context.Context, path string) (entity.RawExtraction, error)
}

// Kind classifies adapter failures.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindExtraction    Kind = "extraction"
	KindTimeout       Kind = "timeout"
)

var (
	ErrConfiguration = errors.New("adapter not configured")
	ErrExtraction    = errors.New("extraction failed")
	ErrTimeout       = errors.New("extraction timed out")
)

// AdapterError is the only error type adapters return.
type AdapterError struct {
	Adapter string
	Kind    Kind
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Adapter, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Adapter, msg)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is.
func (e *AdapterError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func (e *AdapterError) sentinel() error {
	switch e.Kind {
	case KindConfiguration:
		return ErrConfiguration
	case KindTimeout:
		return ErrTimeout
	default:
		return ErrExtraction
	}
}

func NewConfigurationError(adapter, msg string) *AdapterError {
	return &AdapterError{Adapter: adapter, Kind: KindConfiguration, Message: msg}
}

func NewExtractionError(adapter, msg string, cause error) *AdapterError {
	return &AdapterError{Adapter: adapter, Kind: KindExtraction, Message: msg, Cause: cause}
}

func NewTimeoutError(adapter string, cause error) *AdapterError {
	return &AdapterError{Adapter: adapter, Kind: KindTimeout, Message: "deadline exceeded", Cause: cause}
}

func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }
