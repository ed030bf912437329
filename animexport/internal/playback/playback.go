// Package playback moves the editor's playhead to each keyframe.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/hazyhaar/animexport/animexport/internal/host"
	"github.com/hazyhaar/animexport/animexport/internal/settle"
	"github.com/hazyhaar/animexport/animexport/internal/timeline"
)

// Config configures a Driver.
type Config struct {
	Timeline timeline.Timeline
	Catalog  *timeline.Catalog
	Surface  string // selector receiving the presses
	// Margin is added to every x coordinate; LastMargin is added on top
	// for the final keytime so the press lands past its marker.
	Margin     float64
	LastMargin float64
	Waiter     settle.Waiter
	Logger     *slog.Logger
}

// Driver seeks the host timeline. Not safe for concurrent use.
type Driver struct {
	h   host.Host
	cfg Config
}

// New creates a Driver.
func New(h host.Host, cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Waiter == nil {
		cfg.Waiter = settle.None{}
	}
	return &Driver{h: h, cfg: cfg}
}

// Len is the number of keytimes the driver can seek to.
func (d *Driver) Len() int { return d.cfg.Catalog.Len() }

// Target returns the press coordinates for keytime k.
func (d *Driver) Target(k int) (x, y float64) {
	tl := d.cfg.Timeline
	kt := d.cfg.Catalog.At(k)

	px := math.Round(kt.Value / tl.TotalTime * tl.ScaleWidth)
	x = tl.Origin.X + px + d.cfg.Margin
	if k == d.Len()-1 {
		x += d.cfg.LastMargin
	}
	y = math.Round(tl.Origin.Y - tl.Height*0.5)
	return x, y
}

// Seek presses the timeline at keytime k and waits for the editor to
// settle.
func (d *Driver) Seek(ctx context.Context, k int) error {
	if k < 0 || k >= d.Len() {
		return fmt.Errorf("playback: keytime index %d out of range [0,%d)", k, d.Len())
	}
	x, y := d.Target(k)
	d.cfg.Logger.Debug("playback: seek", "k", k, "keytime", d.cfg.Catalog.At(k).Label, "x", x, "y", y)

	if err := d.h.Press(ctx, d.cfg.Surface, x, y); err != nil {
		return fmt.Errorf("playback: press keytime %d: %w", k, err)
	}
	if err := d.cfg.Waiter.Wait(ctx); err != nil {
		return fmt.Errorf("playback: settle keytime %d: %w", k, err)
	}
	return nil
}
