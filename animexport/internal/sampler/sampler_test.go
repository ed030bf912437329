package sampler

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/animexport/internal/identity"
	"github.com/hazyhaar/animexport/animexport/internal/keyframes"
	"github.com/hazyhaar/animexport/animexport/internal/timeline"
	"github.com/hazyhaar/animexport/idgen"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	resolver *identity.Resolver
	builder  *keyframes.Builder
	sampler  *Sampler
	kinds    []string
}

func newFixture(t *testing.T, entries []timeline.Entry) *fixture {
	t.Helper()
	c, err := timeline.NewCatalog(entries)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	cfg := identity.Config{
		ContainerKinds: []string{"g"},
		ShapeKinds:     []string{"path", "line", "circle", "rect"},
		Logger:         quiet,
	}
	r := identity.NewResolver(idgen.NewSequence("Tok"), domtree.NewElement("svg"), cfg)
	b := keyframes.NewBuilder("button:hover", c.TotalTime())
	tl := timeline.Timeline{TotalTime: c.TotalTime()}
	return &fixture{
		resolver: r,
		builder:  b,
		sampler:  New(tl, c, r, b, quiet),
		kinds:    cfg.Kinds(),
	}
}

func entry(v float64, id, group string) timeline.Entry {
	return timeline.Entry{
		KeyTime:   timeline.KeyTime{Label: fmt.Sprint(v), Value: v},
		ElementID: id,
		Property:  timeline.Property{Group: group, Name: group},
	}
}

func (f *fixture) pass(t *testing.T, k int, page string) Stats {
	t.Helper()
	doc, err := domtree.ParseString(page)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	tracked, err := identity.Collect(doc, "#elements-wrapper", f.kinds)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	f.resolver.Resolve(k, tracked)
	st, err := f.sampler.Sample(k, tracked)
	if err != nil {
		t.Fatalf("Sample(%d): %v", k, err)
	}
	return st
}

func groupPage(rot int, extra string) string {
	return fmt.Sprintf(`<html><body><div id="elements-wrapper"><svg>`+
		`<g id="grp" transform="rotate(%d)"><path id="p1"></path><rect id="r1"></rect></g>%s`+
		`</svg></div></body></html>`, rot, extra)
}

// childPage rotates the two shapes of the group and leaves the group itself
// without a transform.
func childPage(rot int) string {
	return fmt.Sprintf(`<html><body><div id="elements-wrapper"><svg>`+
		`<g id="grp"><path id="p1" transform="rotate(%d)"></path><rect id="r1" transform="rotate(%d)"></rect></g>`+
		`</svg></div></body></html>`, rot, rot)
}

func TestSample_ValueReadFromMarkedChild(t *testing.T) {
	f := newFixture(t, []timeline.Entry{
		entry(0, "p1", "transform"),
		entry(0, "r1", "transform"),
		entry(500, "p1", "transform"),
		entry(500, "r1", "transform"),
		entry(1000, "p1", "transform"),
		entry(1000, "r1", "transform"),
	})
	for k, rot := range []int{0, 45, 90} {
		if st := f.pass(t, k, childPage(rot)); st.Recorded != 1 {
			t.Fatalf("pass %d Recorded: got %d, want 1", k, st.Recorded)
		}
	}

	tracks := f.builder.Tracks()
	if len(tracks) != 1 || tracks[0].ExportID != "Tok_1_to" {
		t.Fatalf("Tracks: got %+v, want the single Tok_1_to track", tracks)
	}
	want := []string{"rotate(0)", "rotate(45)", "rotate(90)"}
	blocks := tracks[0].Blocks
	if len(blocks) != len(want) {
		t.Fatalf("Blocks: got %d, want %d", len(blocks), len(want))
	}
	for i, w := range want {
		if got := blocks[i].Declarations[0].Value; got != w {
			t.Errorf("block %d transform: got %q, want %q", i, got, w)
		}
	}
}

func TestSample_MarkedContainerIgnoresChildTransforms(t *testing.T) {
	f := newFixture(t, []timeline.Entry{
		entry(0, "grp", "transform"),
		entry(10, "grp", "transform"),
	})
	page := `<html><body><div id="elements-wrapper"><svg>` +
		`<g id="grp" transform="scale(3)"><path id="p1" transform="rotate(7)"></path></g>` +
		`</svg></div></body></html>`
	f.pass(t, 0, page)
	if got := f.builder.Tracks()[0].Blocks[0].Declarations[0].Value; got != "scale(3)" {
		t.Fatalf("transform: got %q, want scale(3)", got)
	}
}

func TestSample_ContainerWithTwoChildren(t *testing.T) {
	f := newFixture(t, []timeline.Entry{
		entry(0, "grp", "transform"),
		entry(500, "grp", "transform"),
		entry(1000, "grp", "transform"),
	})
	for k, rot := range []int{0, 45, 90} {
		f.pass(t, k, groupPage(rot, ""))
	}

	tracks := f.builder.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("Tracks: got %d, want 1", len(tracks))
	}
	tr := tracks[0]
	if tr.ExportID != "Tok_1_to" || tr.Animation != "Tok_1_to__to" {
		t.Fatalf("track ids: got %s / %s", tr.ExportID, tr.Animation)
	}
	want := []struct {
		pct float64
		val string
	}{{0, "rotate(0)"}, {50, "rotate(45)"}, {100, "rotate(90)"}}
	if len(tr.Blocks) != len(want) {
		t.Fatalf("Blocks: got %d, want %d", len(tr.Blocks), len(want))
	}
	for i, w := range want {
		b := tr.Blocks[i]
		if b.Percent != w.pct || len(b.Declarations) != 1 || b.Declarations[0].Value != w.val {
			t.Errorf("block %d: got %+v, want %v%% transform %s", i, b, w.pct, w.val)
		}
	}
}

func TestSample_NodeFirstSeenLate(t *testing.T) {
	f := newFixture(t, []timeline.Entry{
		entry(0, "grp", "transform"),
		entry(10, "grp", "transform"),
		entry(20, "late", "transform"),
		entry(20, "grp", "transform"),
	})
	late := `<circle id="late" transform="scale(2)"></circle>`
	f.pass(t, 0, groupPage(0, ""))
	f.pass(t, 1, groupPage(10, ""))
	st := f.pass(t, 2, groupPage(20, late))

	if st.Unresolved != 1 {
		t.Errorf("Unresolved: got %d, want 1", st.Unresolved)
	}
	tracks := f.builder.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("Tracks: got %d, want 1 (late node must not be animated)", len(tracks))
	}
	if len(tracks[0].Blocks) != 3 {
		t.Errorf("Blocks: got %d, want 3", len(tracks[0].Blocks))
	}
}

func TestSample_DuplicateTransformEntries(t *testing.T) {
	f := newFixture(t, []timeline.Entry{
		entry(0, "grp", "transform"),
		entry(0, "grp", "transform"),
		entry(0, "p1", "transform"),
		entry(0, "grp", "opacity"),
		entry(10, "grp", "transform"),
	})
	st := f.pass(t, 0, groupPage(5, ""))

	if st.Recorded != 1 {
		t.Fatalf("Recorded: got %d, want 1", st.Recorded)
	}
	if st.Discarded != 1 {
		t.Errorf("Discarded: got %d, want 1", st.Discarded)
	}
	blocks := f.builder.Tracks()[0].Blocks
	if len(blocks) != 1 || len(blocks[0].Declarations) != 1 {
		t.Fatalf("Blocks: got %+v, want one block with one declaration", blocks)
	}
}

func TestSample_TrackOpenedWithoutCatalogData(t *testing.T) {
	f := newFixture(t, []timeline.Entry{
		entry(0, "grp", "transform"),
		entry(10, "grp", "transform"),
	})
	f.pass(t, 0, groupPage(0, `<circle id="still"></circle>`))

	css, err := f.builder.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !strings.Contains(css, "#Tok_2_to") || !strings.Contains(css, "@keyframes Tok_2_to__to {\n}") {
		t.Fatalf("static element: expected binding and empty @keyframes:\n%s", css)
	}
	if _, err := keyframes.Validate(css); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSample_MissingTransformIsNone(t *testing.T) {
	f := newFixture(t, []timeline.Entry{
		entry(0, "dot", "transform"),
		entry(10, "dot", "transform"),
	})
	f.pass(t, 0, `<html><body><div id="elements-wrapper"><svg><circle id="dot"></circle></svg></div></body></html>`)
	blocks := f.builder.Tracks()[0].Blocks
	if got := blocks[0].Declarations[0].Value; got != "none" {
		t.Fatalf("transform: got %q, want none", got)
	}
}
