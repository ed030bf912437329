// Package identity maps editor element ids to the ids used in the exported
// document, and builds the holding tree of cloned elements.
//
// Identities are assigned during the first pass only. A container clone
// absorbs the ids of its shape descendants, so markers targeting a shape
// inside a group animate the group as a whole.
package identity

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/idgen"
)

// Config lists the element kinds the resolver understands.
type Config struct {
	ContainerKinds []string
	ShapeKinds     []string
	Logger         *slog.Logger
}

// Kinds returns container and shape kinds together.
func (c Config) Kinds() []string {
	return append(slices.Clone(c.ContainerKinds), c.ShapeKinds...)
}

// Resolver owns the source id -> export id map and the holding tree.
// Not safe for concurrent use.
type Resolver struct {
	seq     *idgen.Sequence
	holding domtree.Node
	ids     map[string]string
	order   []string // export ids in allocation order
	cfg     Config
}

// NewResolver creates a Resolver that appends clones to holding.
func NewResolver(seq *idgen.Sequence, holding domtree.Node, cfg Config) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Resolver{
		seq:     seq,
		holding: holding,
		ids:     make(map[string]string),
		cfg:     cfg,
	}
}

// Resolve registers the tracked nodes of pass k. Only pass 0 allocates
// ids; later passes leave the map untouched. It returns the number of
// export ids allocated.
func (r *Resolver) Resolve(k int, tracked []domtree.Node) int {
	if k > 0 {
		for _, n := range tracked {
			if id := domtree.ID(n); id != "" {
				if _, ok := r.ids[id]; !ok {
					r.cfg.Logger.Debug("identity: element unseen on first pass", "k", k, "id", id)
				}
			}
		}
		return 0
	}

	added := 0
	for _, n := range tracked {
		id := domtree.ID(n)
		if id == "" {
			continue
		}
		if _, ok := r.ids[id]; ok {
			continue
		}

		exportID := r.seq.Next()
		clone := n.Clone()
		clone.SetAttr("id", exportID)
		r.ids[id] = exportID
		r.order = append(r.order, exportID)
		added++

		if slices.Contains(r.cfg.ContainerKinds, n.Tag()) {
			for _, d := range domtree.Descendants(clone, r.isShape) {
				did := domtree.ID(d)
				if did == "" {
					continue
				}
				if _, ok := r.ids[did]; !ok {
					r.ids[did] = exportID
				}
				d.RemoveAttr("id")
			}
		}
		r.holding.AppendChild(clone)
	}
	r.cfg.Logger.Debug("identity: first pass resolved", "tracked", len(tracked), "allocated", added)
	return added
}

func (r *Resolver) isShape(n domtree.Node) bool {
	return slices.Contains(r.cfg.ShapeKinds, n.Tag())
}

// Lookup returns the export id of a source element.
func (r *Resolver) Lookup(sourceID string) (string, bool) {
	id, ok := r.ids[sourceID]
	return id, ok
}

// Len is the number of export ids allocated.
func (r *Resolver) Len() int { return len(r.order) }

// ExportIDs returns the allocated export ids in allocation order.
func (r *Resolver) ExportIDs() []string { return slices.Clone(r.order) }

// Collect returns the elements of the given kinds under the node matched
// by rootSelector, in document order. The root itself is excluded.
func Collect(doc *domtree.Document, rootSelector string, kinds []string) ([]domtree.Node, error) {
	root, err := doc.QueryFirst(rootSelector)
	if err != nil {
		return nil, fmt.Errorf("identity: tracked root: %w", err)
	}
	return domtree.Descendants(root, func(n domtree.Node) bool {
		return slices.Contains(kinds, n.Tag())
	}), nil
}
