// File: internal/screen/capture.go
package screen

import (
	"context"
	"fmt"
)

// Error codes carried by CaptureError.
const (
	CodeInvalidRegion      = "invalid_region"
	CodeCaptureFailed      = "capture_failed"
	CodeBackendUnavailable = "backend_unavailable"
	CodeNoDisplay          = "no_display"
)

// CaptureError reports a failed capture with a stable code.
type CaptureError struct {
	Code     string
	RegionID string
	Err      error
}

func (e *CaptureError) Error() string {
	msg := "capture " + e.Code
	if e.RegionID != "" {
		msg += fmt.Sprintf(" (region '%s')", e.RegionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CaptureError) Unwrap() error { return e.Err }

// FrameSource is the minimal capture capability every backend provides.
type FrameSource interface {
	CaptureRegion(ctx context.Context, region Region) (*ScreenFrame, error)
}

// Capturer is the region capture port. Implementations must be safe for
// concurrent use by independent runs.
type Capturer interface {
	FrameSource
	// HashRegion returns a change-detection fingerprint of the region.
	// A zero-area region hashes to 0 without error.
	HashRegion(ctx context.Context, region Region, downscale uint32) (uint64, error)
	ListDisplays(ctx context.Context) ([]DisplayInfo, error)
}

// HashRegion captures region from src and hashes it. Backends implement their
// Capturer.HashRegion with this helper.
func HashRegion(ctx context.Context, src FrameSource, region Region, downscale uint32) (uint64, error) {
	if region.Rect.Empty() {
		return 0, nil
	}
	frame, err := src.CaptureRegion(ctx, region)
	if err != nil {
		return 0, err
	}
	return HashFrame(frame, downscale), nil
}

// CheckRegion returns an invalid_region error for zero-area regions.
func CheckRegion(region Region) error {
	if region.Rect.Empty() {
		return &CaptureError{
			Code:     CodeInvalidRegion,
			RegionID: region.ID,
			Err:      fmt.Errorf("region %s has zero area", region.Rect),
		}
	}
	return nil
}
