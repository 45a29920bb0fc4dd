package transcriber

import (
	"context"
	"errors"
	"fmt"
)

// ChunkInput identifies one chunk file to transcribe. Empty Model or Language fall back to
// the provider's configured defaults.
type ChunkInput struct {
	StreamID string
	Index    int
	Path     string
	Model    string
	Language string
}

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, in ChunkInput) (string, error)
}

type Reason string

const (
	ReasonTimeout           Reason = "timeout"
	ReasonCanceled          Reason = "canceled"
	ReasonQuota             Reason = "quota"
	ReasonAuth              Reason = "auth"
	ReasonInvalidRequest    Reason = "invalid_request"
	ReasonMalformedResponse Reason = "malformed_response"
	ReasonTransport         Reason = "transport"
	ReasonUnknown           Reason = "unknown"
)

// ProviderError is returned for any failed provider call on a chunk.
type ProviderError struct {
	Provider   string
	StreamID   string
	ChunkIndex int
	Reason     Reason
	Err        error
}

func NewProviderError(provider string, in ChunkInput, reason Reason, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StreamID:   in.StreamID,
		ChunkIndex: in.Index,
		Reason:     reason,
		Err:        err,
	}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s transcription of chunk %d of stream %s failed (%s): %v",
		e.Provider, e.ChunkIndex, e.StreamID, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ContextReason classifies context errors, which look the same for every provider.
func ContextReason(err error) (Reason, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout, true
	case errors.Is(err, context.Canceled):
		return ReasonCanceled, true
	default:
		return "", false
	}
}

// AsProviderError returns err unchanged when it already is a ProviderError and wraps it
// with ReasonUnknown (or the context reason) otherwise.
func AsProviderError(provider string, in ChunkInput, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	reason, ok := ContextReason(err)
	if !ok {
		reason = ReasonUnknown
	}
	return NewProviderError(provider, in, reason, err)
}
