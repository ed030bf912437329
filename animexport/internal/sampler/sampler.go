// Package sampler reads the state of tracked elements at one keyframe and
// feeds it to the keyframes builder.
package sampler

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/animexport/internal/identity"
	"github.com/hazyhaar/animexport/animexport/internal/keyframes"
	"github.com/hazyhaar/animexport/animexport/internal/timeline"
)

// TransformGroup is the only property group sampled.
const TransformGroup = "transform"

// Sampler combines the catalog, the resolver and the builder.
type Sampler struct {
	tl       timeline.Timeline
	catalog  *timeline.Catalog
	resolver *identity.Resolver
	builder  *keyframes.Builder
	logger   *slog.Logger
}

// New creates a Sampler.
func New(tl timeline.Timeline, c *timeline.Catalog, r *identity.Resolver, b *keyframes.Builder, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{tl: tl, catalog: c, resolver: r, builder: b, logger: logger}
}

// Stats counts what one Sample call did.
type Stats struct {
	Unresolved int // tracked nodes without an export id
	Opened     int // tracks opened
	Recorded   int // blocks recorded
	Discarded  int // catalog properties outside the transform group
}

// Sample records the state of tracked at keytime k. Each export id gets at
// most one block per keytime. The value is read from the element the first
// transform marker names, or from the first tracked node resolving to the
// export id when that element is not tracked.
func (s *Sampler) Sample(k int, tracked []domtree.Node) (Stats, error) {
	kt := s.catalog.At(k)
	percent := s.tl.Percent(kt)
	done := make(map[string]bool)
	bySrc := make(map[string]domtree.Node, len(tracked))
	for _, n := range tracked {
		if id := domtree.ID(n); id != "" {
			if _, dup := bySrc[id]; !dup {
				bySrc[id] = n
			}
		}
	}
	var st Stats

	for _, n := range tracked {
		srcID := domtree.ID(n)
		if srcID == "" {
			continue
		}
		exportID, ok := s.resolver.Lookup(srcID)
		if !ok {
			st.Unresolved++
			continue
		}
		if !s.builder.Opened(exportID) {
			if err := s.builder.Open(exportID); err != nil {
				return st, fmt.Errorf("sampler: open %s: %w", exportID, err)
			}
			st.Opened++
		}
		if done[exportID] {
			continue
		}
		done[exportID] = true

		props := s.properties(kt, exportID)
		if len(props) == 0 {
			continue
		}

		var decls []keyframes.Declaration
		for _, p := range props {
			if p.Group != TransformGroup {
				st.Discarded++
				continue
			}
			if len(decls) > 0 {
				continue
			}
			from, ok := bySrc[p.Source]
			if !ok {
				from = n
			}
			v, ok := from.Attr(TransformGroup)
			if !ok || v == "" {
				v = "none"
			}
			decls = append(decls, keyframes.Declaration{Property: TransformGroup, Value: v})
		}
		if len(decls) == 0 {
			continue
		}
		if err := s.builder.Record(exportID, percent, decls); err != nil {
			return st, fmt.Errorf("sampler: record %s: %w", exportID, err)
		}
		st.Recorded++
	}

	s.logger.Debug("sampler: keytime sampled",
		"k", k, "keytime", kt.Label, "percent", percent,
		"recorded", st.Recorded, "unresolved", st.Unresolved, "discarded", st.Discarded)
	return st, nil
}

// sourced is a catalog property together with the element it was declared on.
type sourced struct {
	Source string
	timeline.Property
}

// properties gathers the catalog entries at kt whose source element
// resolves to exportID, in marker order.
func (s *Sampler) properties(kt timeline.KeyTime, exportID string) []sourced {
	var out []sourced
	for _, src := range s.catalog.Elements(kt) {
		if id, ok := s.resolver.Lookup(src); ok && id == exportID {
			for _, p := range s.catalog.Lookup(kt, src) {
				out = append(out, sourced{Source: src, Property: p})
			}
		}
	}
	return out
}
