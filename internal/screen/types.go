// File: internal/screen/types.go
package screen

import (
	"fmt"
	"time"
)

// Rect is an axis-aligned rectangle in virtual-desktop pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether other lies entirely inside r.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// Intersect returns the overlap of r and other, which may be empty.
func (r Rect) Intersect(other Rect) Rect {
	x0, y0 := max(r.X, other.X), max(r.Y, other.Y)
	x1 := min(r.X+r.Width, other.X+other.Width)
	y1 := min(r.Y+r.Height, other.Y+other.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Region is a named rectangle referenced by id from actions.
type Region struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
	Name string `json:"name,omitempty"`
}

// Validate checks the region id. Size is validated at capture time.
func (r Region) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("region id must not be empty")
	}
	return nil
}

// DisplayInfo describes one physical display. It is rebuilt on every query.
type DisplayInfo struct {
	ID          uint32  `json:"id"`
	Name        string  `json:"name"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ScaleFactor float64 `json:"scale_factor"`
	Primary     bool    `json:"primary"`
}

// Bounds returns the display rectangle.
func (d DisplayInfo) Bounds() Rect {
	return Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
}

// ScreenFrame is an RGBA pixel buffer for one captured region. Frames are
// owned by the caller; capturers never retain them.
type ScreenFrame struct {
	Display    DisplayInfo
	Width      int
	Height     int
	// Stride is the number of bytes per row, at least Width*4.
	Stride     int
	Pixels     []byte
	CapturedAt time.Time
}

// FindDisplay returns the display fully containing rect, else the first display.
func FindDisplay(displays []DisplayInfo, rect Rect) (DisplayInfo, bool) {
	if len(displays) == 0 {
		return DisplayInfo{}, false
	}
	for _, d := range displays {
		if d.Bounds().Contains(rect) {
			return d, true
		}
	}
	return displays[0], true
}
