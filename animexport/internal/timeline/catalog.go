package timeline

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
)

// Marker attributes read from each keyframe node.
const (
	AttrKeyTime       = "data-keytime"
	AttrTarget        = "data-for"
	AttrPropertyGroup = "data-propertygroup"
	AttrPropertyName  = "data-propertyname"
)

// KeyTime is a timeline position. Label is the marker's text, Value its
// numeric reading; keytimes compare by Value.
type KeyTime struct {
	Label string
	Value float64
}

// Property is one changed attribute at a keyframe.
type Property struct {
	Group string
	Name  string
}

// Entry is one parsed keyframe marker.
type Entry struct {
	KeyTime   KeyTime
	ElementID string
	Property
}

// Catalog is the ordered distinct keytime sequence plus the lookup
// keytime -> element -> properties. Elements and properties keep marker
// order so "first occurrence" is well defined.
type Catalog struct {
	keys   []KeyTime
	groups map[float64]*keyGroup
}

type keyGroup struct {
	elements []string
	props    map[string][]Property
}

// NewCatalog groups entries by keytime then by element.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{groups: make(map[float64]*keyGroup)}
	for _, e := range entries {
		if !validKeyTime(e.KeyTime.Value) {
			return nil, fmt.Errorf("timeline: keytime %q is not a finite non-negative number", e.KeyTime.Label)
		}
		g, ok := c.groups[e.KeyTime.Value]
		if !ok {
			g = &keyGroup{props: make(map[string][]Property)}
			c.groups[e.KeyTime.Value] = g
			c.keys = append(c.keys, e.KeyTime)
		}
		if _, seen := g.props[e.ElementID]; !seen {
			g.elements = append(g.elements, e.ElementID)
		}
		g.props[e.ElementID] = append(g.props[e.ElementID], e.Property)
	}
	if len(c.keys) == 0 {
		return nil, ErrEmptyTimeline
	}
	sort.SliceStable(c.keys, func(i, j int) bool { return c.keys[i].Value < c.keys[j].Value })
	if c.TotalTime() <= 0 {
		return nil, fmt.Errorf("%w: total duration is %v", ErrEmptyTimeline, c.TotalTime())
	}
	return c, nil
}

// BuildCatalog parses the keyframe markers of doc. Markers nested inside a
// preview element are skipped, as are markers without a target element or
// whose keytime is not a finite non-negative number.
func BuildCatalog(doc *domtree.Document, sel Selectors, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	markers, err := doc.QueryAll(sel.Marker)
	if err != nil {
		return nil, fmt.Errorf("timeline: markers: %w", err)
	}

	entries := make([]Entry, 0, len(markers))
	skipped := 0
	for _, m := range markers {
		if sel.Preview != "" && domtree.HasAncestor(m, sel.Preview) {
			continue
		}
		e, err := parseMarker(m)
		if err != nil {
			skipped++
			logger.Warn("timeline: skipping marker", "error", err)
			continue
		}
		entries = append(entries, e)
	}

	c, err := NewCatalog(entries)
	if err != nil {
		return nil, err
	}
	logger.Info("timeline: catalog built",
		"markers", len(entries), "skipped", skipped,
		"keytimes", c.Len(), "total_time", c.TotalTime())
	return c, nil
}

func parseMarker(m domtree.Node) (Entry, error) {
	label, _ := m.Attr(AttrKeyTime)
	label = strings.TrimSpace(label)
	v, err := strconv.ParseFloat(label, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("keytime %q: %w", label, err)
	}
	if !validKeyTime(v) {
		return Entry{}, fmt.Errorf("keytime %q: not a finite non-negative number", label)
	}
	target, _ := m.Attr(AttrTarget)
	if target == "" {
		return Entry{}, fmt.Errorf("keytime %q: marker has no target", label)
	}
	group, _ := m.Attr(AttrPropertyGroup)
	name, _ := m.Attr(AttrPropertyName)
	return Entry{
		KeyTime:   KeyTime{Label: label, Value: v},
		ElementID: target,
		Property:  Property{Group: group, Name: name},
	}, nil
}

// NaN would break both the sort and the map lookup.
func validKeyTime(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// KeyTimes returns the distinct keytimes in ascending order.
func (c *Catalog) KeyTimes() []KeyTime {
	out := make([]KeyTime, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len is the number of distinct keytimes.
func (c *Catalog) Len() int { return len(c.keys) }

// At returns the k-th keytime.
func (c *Catalog) At(k int) KeyTime { return c.keys[k] }

// TotalTime is the largest keytime.
func (c *Catalog) TotalTime() float64 {
	if len(c.keys) == 0 {
		return 0
	}
	return c.keys[len(c.keys)-1].Value
}

// Elements returns the element ids with markers at t, in marker order.
func (c *Catalog) Elements(t KeyTime) []string {
	g, ok := c.groups[t.Value]
	if !ok {
		return nil
	}
	return g.elements
}

// Lookup returns the properties changed on elementID at t, in marker order.
func (c *Catalog) Lookup(t KeyTime, elementID string) []Property {
	g, ok := c.groups[t.Value]
	if !ok {
		return nil
	}
	return g.props[elementID]
}
