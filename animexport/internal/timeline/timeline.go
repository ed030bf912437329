// Package timeline reads the editor's timeline: its geometry (pixel-to-time
// scale and click row) and its keyframe markers.
package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/animexport/animexport/internal/host"
)

// ErrStructure marks a missing editor part (container, surface, anchor,
// tracked root). The run stops before any output is written.
var ErrStructure = errors.New("timeline: editor structure not found")

// ErrEmptyTimeline is returned when no usable keyframe marker exists or
// the total duration is zero.
var ErrEmptyTimeline = errors.New("timeline: no keyframes to reconstruct")

// Selectors locates the timeline parts in the host document.
type Selectors struct {
	Container string // timeline container
	Surface   string // element accepting pointer input
	Anchor    string // group whose right edge ends the horizontal scale
	Marker    string // keyframe marker nodes
	Preview   string // tag of nested previews whose markers are ignored
}

// DefaultSelectors matches the editor layout the tool was built against.
func DefaultSelectors() Selectors {
	return Selectors{
		Container: "div.timeline-container",
		Surface:   `div.timeline-container rect[pointer-events="all"]`,
		Anchor:    "div.timeline-container svg g",
		Marker:    `div.timeline-container div.timeline-key[data-type="key"]`,
		Preview:   "svg",
	}
}

// Point is a position in page coordinates.
type Point struct {
	X, Y float64
}

// Timeline is the derived time/pixel mapping. Immutable once inspected.
type Timeline struct {
	TotalTime  float64
	Origin     Point // bottom-left corner of the container
	ScaleWidth float64
	Height     float64
}

// Percent maps a keytime to its position in the animation, unrounded.
func (t Timeline) Percent(k KeyTime) float64 {
	return k.Value / t.TotalTime * 100
}

// Inspect measures the timeline on the host. Every missing part is fatal:
// the returned error wraps both ErrStructure and the host error.
func Inspect(ctx context.Context, h host.Host, sel Selectors, totalTime float64) (Timeline, error) {
	container, err := h.Rect(ctx, sel.Container)
	if err != nil {
		return Timeline{}, fmt.Errorf("%w: container: %w", ErrStructure, err)
	}
	if _, err := h.Rect(ctx, sel.Surface); err != nil {
		return Timeline{}, fmt.Errorf("%w: interactive surface: %w", ErrStructure, err)
	}
	anchor, err := h.Rect(ctx, sel.Anchor)
	if err != nil {
		return Timeline{}, fmt.Errorf("%w: anchor group: %w", ErrStructure, err)
	}

	origin := Point{X: container.Left, Y: container.Bottom}
	return Timeline{
		TotalTime:  totalTime,
		Origin:     origin,
		ScaleWidth: anchor.Right - origin.X,
		Height:     container.Height(),
	}, nil
}
