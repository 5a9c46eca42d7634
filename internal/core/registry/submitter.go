package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/docgate/docgate/internal/core"
)

// Admitter decides whether a call may proceed. *engine.RateLimiter
// implements it.
type Admitter interface {
	Admit() bool
}

// Submitter gates document submissions behind an Admitter and forwards
// admitted ones to the Transport.
type Submitter struct {
	Limiter   Admitter
	Transport Transport
	Endpoint  string
}

// Submit sends doc with its signature to the registry.
//
// A rejected admission returns core.ErrRateLimited without touching the
// transport. Once admitted the slot stays consumed, whatever the transport
// reports.
func (s *Submitter) Submit(ctx context.Context, doc core.Document, signature string) (*core.SubmissionResult, error) {
	if s == nil || s.Limiter == nil || s.Transport == nil {
		return nil, errors.New("submitter is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !s.Limiter.Admit() {
		return nil, core.ErrRateLimited
	}

	payload, err := BuildPayload(doc, signature)
	if err != nil {
		return nil, err
	}

	endpoint := s.endpoint()
	resp, err := s.Transport.Send(ctx, endpoint, payload)
	if err != nil {
		return nil, &core.TransportError{Endpoint: endpoint, Err: err}
	}
	if resp == nil {
		return nil, &core.TransportError{Endpoint: endpoint, Err: errors.New("empty transport response")}
	}

	return &core.SubmissionResult{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}, nil
}

func (s *Submitter) endpoint() string {
	if value := strings.TrimSpace(s.Endpoint); value != "" {
		return value
	}
	return DefaultCreatePath
}
