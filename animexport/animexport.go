// Package animexport rebuilds a timeline animation authored in a browser
// vector editor as a standalone SVG document animated by CSS @keyframes.
//
// The editor exposes only its rendered state, so the animation is
// recovered by playing it back: the playhead is moved to every keyframe,
// the DOM is sampled, and each sample becomes one keyframe block. Run is
// the pipeline over any host.Host; Reconstructor wires it to a live
// browser and to the run journal.
package animexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/animexport/animexport/internal/config"
	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/animexport/internal/export"
	"github.com/hazyhaar/animexport/animexport/internal/host"
	"github.com/hazyhaar/animexport/animexport/internal/identity"
	"github.com/hazyhaar/animexport/animexport/internal/journal"
	"github.com/hazyhaar/animexport/animexport/internal/keyframes"
	"github.com/hazyhaar/animexport/animexport/internal/playback"
	"github.com/hazyhaar/animexport/animexport/internal/sampler"
	"github.com/hazyhaar/animexport/animexport/internal/settle"
	"github.com/hazyhaar/animexport/animexport/internal/timeline"
	"github.com/hazyhaar/animexport/idgen"
)

// Errors surfaced by a run.
var (
	// ErrStructure: a required editor part is missing. Nothing is written.
	ErrStructure = timeline.ErrStructure
	// ErrEmptyTimeline: no usable keyframe marker, or zero duration.
	ErrEmptyTimeline = timeline.ErrEmptyTimeline
	// ErrRunNotFound: unknown journal run id.
	ErrRunNotFound = journal.ErrRunNotFound
)

// Options configures one Run.
type Options struct {
	Config *Config
	// Token prefixes every export id. Empty falls back to
	// Config.Session.Token, then to a random token.
	Token string
	// Waiter overrides the settle strategy from Config.Settle.
	Waiter settle.Waiter
	// Stdout receives the document when Config.Export.Output is "-".
	Stdout io.Writer
	Logger *slog.Logger
}

// Report summarizes a finished run.
type Report struct {
	RunID     string
	Token     string
	KeyTimes  int
	TotalTime float64
	Elements  int // export ids allocated
	Blocks    int // keyframe blocks in the stylesheet
	Output    export.Result
	// Reference is the digest of the journaled output a replay is
	// compared against. Empty outside replays.
	Reference string
}

// Matches reports whether a replay reproduced the journaled output.
func (r *Report) Matches() bool {
	return r.Reference != "" && r.Reference == r.Output.SHA256
}

// Run reconstructs the animation shown by h and exports it. Structural
// problems are detected before the first seek; on any error no output is
// written.
func Run(ctx context.Context, h host.Host, opts Options) (*Report, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	token, err := resolveToken(opts.Token, cfg.Session.Token)
	if err != nil {
		return nil, err
	}
	sel := selectors(cfg.Selectors)
	idCfg := identity.Config{
		ContainerKinds: cfg.Selectors.ContainerKinds,
		ShapeKinds:     cfg.Selectors.ShapeKinds,
		Logger:         logger,
	}
	kinds := idCfg.Kinds()

	// Preflight: catalog, geometry and tracked root.
	doc, err := h.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("animexport: read document: %w", err)
	}
	catalog, err := timeline.BuildCatalog(doc, sel, logger)
	if err != nil {
		return nil, err
	}
	tl, err := timeline.Inspect(ctx, h, sel, catalog.TotalTime())
	if err != nil {
		return nil, err
	}
	if _, err := collect(doc, cfg.Selectors.TrackedRoot, kinds); err != nil {
		return nil, err
	}

	waiter := opts.Waiter
	if waiter == nil {
		waiter, err = settle.New(cfg.Settle, h, cfg.Selectors.TrackedRoot, logger)
		if err != nil {
			return nil, err
		}
	}

	holding := domtree.NewElement("svg")
	resolver := identity.NewResolver(idgen.NewSequence(token), holding, idCfg)
	builder := keyframes.NewBuilder(cfg.Export.Trigger, tl.TotalTime)
	smp := sampler.New(tl, catalog, resolver, builder, logger)
	driver := playback.New(h, playback.Config{
		Timeline:   tl,
		Catalog:    catalog,
		Surface:    sel.Surface,
		Margin:     cfg.Playback.Margin,
		LastMargin: cfg.Playback.LastMargin,
		Waiter:     waiter,
		Logger:     logger,
	})

	logger.Info("animexport: reconstruction started",
		"token", token, "keytimes", catalog.Len(), "total_time", tl.TotalTime,
		"scale_width", tl.ScaleWidth)

	for k := 0; k < driver.Len(); k++ {
		if err := driver.Seek(ctx, k); err != nil {
			return nil, err
		}
		doc, err := h.Document(ctx)
		if err != nil {
			return nil, fmt.Errorf("animexport: read document at keytime %d: %w", k, err)
		}
		tracked, err := collect(doc, cfg.Selectors.TrackedRoot, kinds)
		if err != nil {
			return nil, err
		}
		resolver.Resolve(k, tracked)
		if _, err := smp.Sample(k, tracked); err != nil {
			return nil, err
		}
	}

	css, err := builder.Finalize()
	if err != nil {
		return nil, err
	}
	sum, err := keyframes.Validate(css)
	if err != nil {
		return nil, err
	}

	exp := export.New(export.Config{
		Output:  cfg.Export.Output,
		ViewBox: cfg.Export.ViewBox,
		Stdout:  opts.Stdout,
		Logger:  logger,
	})
	res, err := exp.Export(ctx, holding, css)
	if err != nil {
		return nil, err
	}

	return &Report{
		Token:     token,
		KeyTimes:  catalog.Len(),
		TotalTime: tl.TotalTime,
		Elements:  resolver.Len(),
		Blocks:    sum.Blocks,
		Output:    res,
	}, nil
}

func collect(doc *domtree.Document, root string, kinds []string) ([]domtree.Node, error) {
	tracked, err := identity.Collect(doc, root, kinds)
	if errors.Is(err, domtree.ErrNoMatch) {
		return nil, fmt.Errorf("%w: %w", ErrStructure, err)
	}
	return tracked, err
}

func resolveToken(explicit, configured string) (string, error) {
	token := explicit
	if token == "" {
		token = configured
	}
	if token == "" {
		return idgen.Token(idgen.DefaultTokenLength)(), nil
	}
	if err := idgen.ValidateToken(token); err != nil {
		return "", fmt.Errorf("animexport: session token: %w", err)
	}
	return token, nil
}

func selectors(s config.SelectorsConfig) timeline.Selectors {
	return timeline.Selectors{
		Container: s.TimelineContainer,
		Surface:   s.TimelineSurface,
		Anchor:    s.TimelineAnchor,
		Marker:    s.KeyframeMarker,
		Preview:   s.PreviewTag,
	}
}
