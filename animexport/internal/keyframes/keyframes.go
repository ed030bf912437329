// Package keyframes accumulates sampled element states and renders them as
// a CSS stylesheet: one binding rule per animated element followed by one
// @keyframes rule per element.
package keyframes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/animexport/idgen"
)

// ErrFinalized is returned by every mutating call after Finalize.
var ErrFinalized = errors.New("keyframes: builder already finalized")

// State is the builder lifecycle.
type State int

const (
	Empty State = iota
	Accumulating
	Finalized
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Accumulating:
		return "accumulating"
	case Finalized:
		return "finalized"
	}
	return "unknown"
}

// Declaration is one CSS property/value pair.
type Declaration struct {
	Property string
	Value    string
}

// Block is the declarations recorded at one percentage.
type Block struct {
	Percent      float64
	Declarations []Declaration
}

// Track is the animation of one exported element.
type Track struct {
	ExportID  string
	Animation string
	Blocks    []Block
}

// Builder owns the stylesheet text. Not safe for concurrent use.
type Builder struct {
	trigger   string
	totalTime float64
	state     State
	bindings  strings.Builder
	tracks    map[string]*Track
	order     []string
}

// NewBuilder creates a Builder whose binding rules fire on trigger and
// run for totalTime milliseconds.
func NewBuilder(trigger string, totalTime float64) *Builder {
	return &Builder{
		trigger:   trigger,
		totalTime: totalTime,
		tracks:    make(map[string]*Track),
	}
}

// State reports the lifecycle state.
func (b *Builder) State() State { return b.state }

// Opened reports whether exportID already has a track.
func (b *Builder) Opened(exportID string) bool {
	_, ok := b.tracks[exportID]
	return ok
}

// Open starts the track of exportID and appends its binding rule.
// Opening an existing track is a no-op.
func (b *Builder) Open(exportID string) error {
	if b.state == Finalized {
		return ErrFinalized
	}
	if _, ok := b.tracks[exportID]; ok {
		return nil
	}
	t := &Track{ExportID: exportID, Animation: idgen.AnimationName(exportID)}
	b.tracks[exportID] = t
	b.order = append(b.order, exportID)
	b.state = Accumulating

	fmt.Fprintf(&b.bindings, "%s #%s {\n  animation: %s %sms linear 1 normal forwards;\n}\n",
		b.trigger, exportID, t.Animation, FormatNumber(b.totalTime))
	return nil
}

// Record appends a block to an open track. Percentages must not decrease
// within a track.
func (b *Builder) Record(exportID string, percent float64, decls []Declaration) error {
	if b.state == Finalized {
		return ErrFinalized
	}
	t, ok := b.tracks[exportID]
	if !ok {
		return fmt.Errorf("keyframes: record %s: track not open", exportID)
	}
	if n := len(t.Blocks); n > 0 && percent < t.Blocks[n-1].Percent {
		return fmt.Errorf("keyframes: record %s: percent %v after %v", exportID, percent, t.Blocks[n-1].Percent)
	}
	t.Blocks = append(t.Blocks, Block{Percent: percent, Declarations: decls})
	return nil
}

// Tracks returns the tracks in first-opened order.
func (b *Builder) Tracks() []Track {
	out := make([]Track, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.tracks[id])
	}
	return out
}

// Finalize renders the stylesheet: all binding rules, then one @keyframes
// rule per track in first-opened order. It can be called once.
func (b *Builder) Finalize() (string, error) {
	if b.state == Finalized {
		return "", ErrFinalized
	}
	b.state = Finalized

	var sb strings.Builder
	sb.WriteString(b.bindings.String())
	for _, id := range b.order {
		t := b.tracks[id]
		fmt.Fprintf(&sb, "@keyframes %s {\n", t.Animation)
		for _, blk := range t.Blocks {
			fmt.Fprintf(&sb, "  %s%% {", FormatPercent(blk.Percent))
			for _, d := range blk.Declarations {
				fmt.Fprintf(&sb, " %s: %s;", d.Property, d.Value)
			}
			sb.WriteString(" }\n")
		}
		sb.WriteString("}\n")
	}
	return sb.String(), nil
}

// FormatPercent renders a percentage with the shortest exact
// representation, no rounding.
func FormatPercent(p float64) string {
	return FormatNumber(p)
}

// FormatNumber renders f with the shortest representation that parses
// back to f.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
