package keyframes

import (
	"errors"
	"strings"
	"testing"
)

func transform(v string) []Declaration {
	return []Declaration{{Property: "transform", Value: v}}
}

func TestBuilder_Lifecycle(t *testing.T) {
	b := NewBuilder("button:hover", 1000)
	if b.State() != Empty {
		t.Fatalf("State: got %v, want empty", b.State())
	}
	if err := b.Open("Tok_1_to"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.State() != Accumulating {
		t.Fatalf("State: got %v, want accumulating", b.State())
	}
	if _, err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if b.State() != Finalized {
		t.Fatalf("State: got %v, want finalized", b.State())
	}
	if err := b.Open("Tok_2_to"); !errors.Is(err, ErrFinalized) {
		t.Errorf("Open after Finalize: got %v, want ErrFinalized", err)
	}
	if err := b.Record("Tok_1_to", 0, nil); !errors.Is(err, ErrFinalized) {
		t.Errorf("Record after Finalize: got %v, want ErrFinalized", err)
	}
	if _, err := b.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Errorf("second Finalize: got %v, want ErrFinalized", err)
	}
}

func TestBuilder_Render(t *testing.T) {
	b := NewBuilder("button:hover", 1000)
	steps := []struct {
		pct float64
		val string
	}{{0, "rotate(0)"}, {50, "rotate(45)"}, {100, "rotate(90)"}}
	if err := b.Open("Tok_1_to"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, s := range steps {
		if err := b.Record("Tok_1_to", s.pct, transform(s.val)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	css, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	want := `button:hover #Tok_1_to {
  animation: Tok_1_to__to 1000ms linear 1 normal forwards;
}
@keyframes Tok_1_to__to {
  0% { transform: rotate(0); }
  50% { transform: rotate(45); }
  100% { transform: rotate(90); }
}
`
	if css != want {
		t.Fatalf("Finalize:\ngot:\n%s\nwant:\n%s", css, want)
	}
}

func TestBuilder_BindingsBeforeKeyframes(t *testing.T) {
	b := NewBuilder("button:hover", 10)
	for _, id := range []string{"T_1_to", "T_2_to", "T_3_to"} {
		if err := b.Open(id); err != nil {
			t.Fatalf("Open: %v", err)
		}
	}
	css, _ := b.Finalize()
	lastBinding := strings.LastIndex(css, "animation:")
	firstKeyframes := strings.Index(css, "@keyframes")
	if lastBinding > firstKeyframes {
		t.Fatal("Finalize: binding rule after a @keyframes rule")
	}
	if i1, i2, i3 := strings.Index(css, "@keyframes T_1_to"), strings.Index(css, "@keyframes T_2_to"), strings.Index(css, "@keyframes T_3_to"); !(i1 < i2 && i2 < i3) {
		t.Fatal("Finalize: @keyframes not in first-opened order")
	}
}

func TestBuilder_OpenIdempotent(t *testing.T) {
	b := NewBuilder("button:hover", 10)
	_ = b.Open("T_1_to")
	_ = b.Open("T_1_to")
	css, _ := b.Finalize()
	if n := strings.Count(css, "#T_1_to"); n != 1 {
		t.Fatalf("binding rules: got %d, want 1", n)
	}
}

func TestBuilder_RecordRules(t *testing.T) {
	b := NewBuilder("button:hover", 10)
	if err := b.Record("T_1_to", 0, nil); err == nil {
		t.Fatal("Record on unopened track: expected error")
	}
	_ = b.Open("T_1_to")
	_ = b.Record("T_1_to", 50, nil)
	if err := b.Record("T_1_to", 20, nil); err == nil {
		t.Fatal("Record with decreasing percent: expected error")
	}
	if err := b.Record("T_1_to", 50, nil); err != nil {
		t.Fatalf("Record with equal percent: %v", err)
	}
}

func TestFormatPercent(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{50, "50"},
		{100, "100"},
		{100.0 / 3, "33.333333333333336"},
		{12.5, "12.5"},
	}
	for _, c := range cases {
		if got := FormatPercent(c.in); got != c.want {
			t.Errorf("FormatPercent(%v): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidate_BuilderOutput(t *testing.T) {
	b := NewBuilder("button:hover", 3000)
	for _, id := range []string{"T_1_to", "T_2_to"} {
		_ = b.Open(id)
		_ = b.Record(id, 0, transform("none"))
		_ = b.Record(id, 1000.0/3000*100, transform("translate(4 5) rotate(30)"))
	}
	_ = b.Open("T_3_to") // bound with an empty @keyframes
	css, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	sum, err := Validate(css)
	if err != nil {
		t.Fatalf("Validate: %v\n%s", err, css)
	}
	if sum.Bindings != 3 || sum.Keyframes != 3 || sum.Blocks != 4 {
		t.Fatalf("Validate: got %+v", sum)
	}
}

func TestValidate_DetectsBrokenBijection(t *testing.T) {
	unbound := `@keyframes a__ab { 0% { transform: none; } }`
	if _, err := Validate(unbound); err == nil {
		t.Error("Validate: expected error for unbound @keyframes")
	}
	undefined := "button:hover #a { animation: a__ab 10ms linear 1 normal forwards; }"
	if _, err := Validate(undefined); err == nil {
		t.Error("Validate: expected error for undefined animation")
	}
	twice := undefined + "\n" + undefined + "\n@keyframes a__ab { }"
	if _, err := Validate(twice); err == nil {
		t.Error("Validate: expected error for duplicate binding")
	}
}
