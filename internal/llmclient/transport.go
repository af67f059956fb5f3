// File: internal/llmclient/transport.go
package llmclient

import (
	"context"
	"encoding/base64"
	"errors"
)

// Part is one element of the user message: either text or a PNG image.
type Part struct {
	Text string
	PNG  []byte
}

// IsImage reports whether the part carries image data.
func (p Part) IsImage() bool { return len(p.PNG) > 0 }

// Request is a single provider call.
type Request struct {
	Parts       []Part
	MaxTokens   int
	Temperature float32
}

// Transport performs one round trip to a provider and returns the raw text of
// the first choice. It never retries; RetryingClient owns retry policy.
type Transport interface {
	Name() string
	Complete(ctx context.Context, req *Request) (string, error)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (bad credentials, malformed request).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// isPermanentStatus reports whether an HTTP status will not improve on retry.
func isPermanentStatus(code int) bool {
	switch code {
	case 400, 401, 403, 404, 422:
		return true
	}
	return false
}

// DataURL encodes PNG bytes as a data URL.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
