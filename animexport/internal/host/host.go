// Package host defines what the reconstruction pipeline needs from the
// editor environment: element geometry, synthetic pointer input, and the
// current document. The live implementation is browser.Tab; Static serves
// recorded frames for replays and tests.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
)

// ErrNotFound is returned when a selector matches no element on the host.
var ErrNotFound = errors.New("host: element not found")

// Rect is an element's bounding box in page coordinates (scroll included).
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Host is the editor environment.
type Host interface {
	// Rect returns the bounding box of the first element matching selector,
	// or an error wrapping ErrNotFound.
	Rect(ctx context.Context, selector string) (Rect, error)
	// Press dispatches a pointer press at (x, y) against the first element
	// matching selector.
	Press(ctx context.Context, selector string, x, y float64) error
	// Document returns a fresh parse of the current DOM.
	Document(ctx context.Context) (*domtree.Document, error)
}

// FrameAwaiter is implemented by hosts that can signal rendered frames.
type FrameAwaiter interface {
	// AwaitFrames blocks until n animation frames have been rendered.
	AwaitFrames(ctx context.Context, n int) error
}

// Press records one Press call.
type Press struct {
	Selector string
	X, Y     float64
}

// Static is an in-process Host serving pre-captured documents.
// Frames[0] is served before any press; Frames[i] after the i-th press.
// Presses beyond the last frame keep serving the last frame.
type Static struct {
	Rects   map[string]Rect
	Frames  []string
	presses []Press
}

// NewStatic creates a Static host.
func NewStatic(rects map[string]Rect, frames ...string) *Static {
	if rects == nil {
		rects = make(map[string]Rect)
	}
	return &Static{Rects: rects, Frames: frames}
}

func (s *Static) Rect(_ context.Context, selector string) (Rect, error) {
	r, ok := s.Rects[selector]
	if !ok {
		return Rect{}, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return r, nil
}

func (s *Static) Press(ctx context.Context, selector string, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.Rects[selector]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	s.presses = append(s.presses, Press{Selector: selector, X: x, Y: y})
	return nil
}

func (s *Static) Document(ctx context.Context) (*domtree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Frames) == 0 {
		return nil, fmt.Errorf("host: static host has no frames")
	}
	i := len(s.presses)
	if i >= len(s.Frames) {
		i = len(s.Frames) - 1
	}
	return domtree.ParseString(s.Frames[i])
}

// AwaitFrames returns immediately: static frames are always settled.
func (s *Static) AwaitFrames(ctx context.Context, _ int) error {
	return ctx.Err()
}

// Presses returns the presses received so far.
func (s *Static) Presses() []Press {
	out := make([]Press, len(s.presses))
	copy(out, s.presses)
	return out
}
