package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/animexport/internal/host"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func marker(keytime, target, group, name string) string {
	return fmt.Sprintf(`<div class="timeline-key" data-type="key" data-keytime="%s" data-for="%s" data-propertygroup="%s" data-propertyname="%s"></div>`,
		keytime, target, group, name)
}

func page(markers ...string) string {
	return `<html><body><div class="timeline-container">` + strings.Join(markers, "") +
		`<svg><g><foreignObject>` + marker("9999", "preview", "transform", "x") + `</foreignObject></g></svg>` +
		`</div></body></html>`
}

func build(t *testing.T, markers ...string) *Catalog {
	t.Helper()
	doc, err := domtree.ParseString(page(markers...))
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	c, err := BuildCatalog(doc, DefaultSelectors(), quiet)
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}
	return c
}

func labels(ks []KeyTime) string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = k.Label
	}
	return strings.Join(parts, ",")
}

func TestBuildCatalog_SortsAndDedups(t *testing.T) {
	c := build(t,
		marker("1000", "a", "transform", "rotate"),
		marker("0", "a", "transform", "rotate"),
		marker("500", "b", "transform", "scale"),
		marker("1000", "b", "opacity", "opacity"),
		marker("0", "b", "transform", "rotate"),
	)
	if got := labels(c.KeyTimes()); got != "0,500,1000" {
		t.Fatalf("KeyTimes: got %q, want 0,500,1000", got)
	}
	if c.TotalTime() != 1000 {
		t.Errorf("TotalTime: got %v, want 1000", c.TotalTime())
	}
}

func TestBuildCatalog_NumericOrder(t *testing.T) {
	c := build(t,
		marker("90", "a", "transform", "x"),
		marker("100", "a", "transform", "x"),
		marker("1000", "a", "transform", "x"),
		marker("200", "a", "transform", "x"),
	)
	if got := labels(c.KeyTimes()); got != "90,100,200,1000" {
		t.Fatalf("KeyTimes: got %q (string order leaked)", got)
	}
}

func TestBuildCatalog_IgnoresPreviewMarkers(t *testing.T) {
	c := build(t, marker("0", "a", "transform", "x"), marker("10", "a", "transform", "x"))
	for _, k := range c.KeyTimes() {
		if k.Value == 9999 {
			t.Fatal("BuildCatalog: preview marker counted")
		}
	}
	if c.Elements(KeyTime{Value: 9999}) != nil {
		t.Fatal("Elements: preview target present")
	}
}

func TestBuildCatalog_Lookup(t *testing.T) {
	c := build(t,
		marker("0", "a", "transform", "rotate"),
		marker("0", "a", "transform", "scale"),
		marker("0", "b", "fill", "fill"),
		marker("10", "a", "transform", "rotate"),
	)
	k0 := c.At(0)
	if got := strings.Join(c.Elements(k0), ","); got != "a,b" {
		t.Fatalf("Elements: got %q, want a,b", got)
	}
	props := c.Lookup(k0, "a")
	if len(props) != 2 || props[0].Name != "rotate" || props[1].Name != "scale" {
		t.Fatalf("Lookup: got %+v", props)
	}
	if c.Lookup(k0, "missing") != nil {
		t.Error("Lookup: expected nil for unknown element")
	}
}

func TestBuildCatalog_SkipsMalformed(t *testing.T) {
	c := build(t,
		marker("abc", "a", "transform", "x"),
		marker("5", "", "transform", "x"),
		marker("0", "a", "transform", "x"),
		marker("20", "a", "transform", "x"),
	)
	if c.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", c.Len())
	}
}

func TestBuildCatalog_SkipsNonFiniteKeyTimes(t *testing.T) {
	for _, bad := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "infinity", "-5", "1e400"} {
		c := build(t,
			marker("0", "a", "transform", "x"),
			marker(bad, "a", "transform", "x"),
			marker("1000", "a", "transform", "x"),
		)
		if got := labels(c.KeyTimes()); got != "0,1000" {
			t.Errorf("keytime %s: KeyTimes got %s, want 0,1000", bad, got)
		}
		if got := c.TotalTime(); got != 1000 {
			t.Errorf("keytime %s: TotalTime got %v, want 1000", bad, got)
		}
	}
}

func TestNewCatalog_RejectsNaN(t *testing.T) {
	_, err := NewCatalog([]Entry{
		{KeyTime: KeyTime{Label: "0"}, ElementID: "a"},
		{KeyTime: KeyTime{Label: "NaN", Value: math.NaN()}, ElementID: "a"},
		{KeyTime: KeyTime{Label: "10", Value: 10}, ElementID: "a"},
	})
	if err == nil {
		t.Fatal("NewCatalog: got nil error, want a keytime error")
	}
}

func TestBuildCatalog_Empty(t *testing.T) {
	doc, _ := domtree.ParseString(page())
	_, err := BuildCatalog(doc, DefaultSelectors(), quiet)
	if !errors.Is(err, ErrEmptyTimeline) {
		t.Fatalf("BuildCatalog: got %v, want ErrEmptyTimeline", err)
	}
}

func TestNewCatalog_ZeroDuration(t *testing.T) {
	_, err := NewCatalog([]Entry{{KeyTime: KeyTime{Label: "0"}, ElementID: "a"}})
	if !errors.Is(err, ErrEmptyTimeline) {
		t.Fatalf("NewCatalog: got %v, want ErrEmptyTimeline", err)
	}
}

func TestNewCatalog_AscendingAnyInputOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		var entries []Entry
		for i := 0; i < 30; i++ {
			v := float64(rng.Intn(12) * 250)
			entries = append(entries, Entry{
				KeyTime:   KeyTime{Label: fmt.Sprint(v), Value: v},
				ElementID: fmt.Sprintf("e%d", rng.Intn(4)),
				Property:  Property{Group: "transform"},
			})
		}
		entries = append(entries, Entry{KeyTime: KeyTime{Label: "3000", Value: 3000}, ElementID: "e0"})
		c, err := NewCatalog(entries)
		if err != nil {
			t.Fatalf("NewCatalog: %v", err)
		}
		ks := c.KeyTimes()
		for i := 1; i < len(ks); i++ {
			if !(ks[i-1].Value < ks[i].Value) {
				t.Fatalf("trial %d: keytimes not strictly ascending: %v", trial, ks)
			}
		}
	}
}

func TestInspect(t *testing.T) {
	sel := DefaultSelectors()
	h := host.NewStatic(map[string]host.Rect{
		sel.Container: {Left: 100, Top: 500, Right: 900, Bottom: 600},
		sel.Surface:   {Left: 100, Top: 500, Right: 900, Bottom: 600},
		sel.Anchor:    {Left: 120, Top: 510, Right: 700, Bottom: 520},
	})
	tl, err := Inspect(context.Background(), h, sel, 1000)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if tl.Origin != (Point{X: 100, Y: 600}) {
		t.Errorf("Origin: got %+v", tl.Origin)
	}
	if tl.ScaleWidth != 600 {
		t.Errorf("ScaleWidth: got %v, want 600", tl.ScaleWidth)
	}
	if tl.Height != 100 {
		t.Errorf("Height: got %v, want 100", tl.Height)
	}
	if tl.TotalTime != 1000 {
		t.Errorf("TotalTime: got %v", tl.TotalTime)
	}
}

func TestInspect_MissingParts(t *testing.T) {
	sel := DefaultSelectors()
	full := map[string]host.Rect{
		sel.Container: {Right: 10, Bottom: 10},
		sel.Surface:   {Right: 10, Bottom: 10},
		sel.Anchor:    {Right: 10, Bottom: 10},
	}
	for _, missing := range []string{sel.Container, sel.Surface, sel.Anchor} {
		rects := make(map[string]host.Rect)
		for k, v := range full {
			if k != missing {
				rects[k] = v
			}
		}
		_, err := Inspect(context.Background(), host.NewStatic(rects), sel, 100)
		if !errors.Is(err, ErrStructure) || !errors.Is(err, host.ErrNotFound) {
			t.Errorf("Inspect without %q: got %v, want ErrStructure+ErrNotFound", missing, err)
		}
	}
}

func TestPercent_Unrounded(t *testing.T) {
	tl := Timeline{TotalTime: 3000}
	cases := map[float64]float64{0: 0, 1000: 1000.0 / 3000 * 100, 1500: 50, 3000: 100}
	for v, want := range cases {
		if got := tl.Percent(KeyTime{Value: v}); got != want {
			t.Errorf("Percent(%v): got %v, want %v", v, got, want)
		}
	}
}
