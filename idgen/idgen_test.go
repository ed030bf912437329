package idgen

import (
	"strings"
	"testing"
)

func TestToken_Length(t *testing.T) {
	for _, length := range []int{4, 8, 16} {
		id := Token(length)()
		if len(id) != length {
			t.Fatalf("Token(%d): got length %d", length, len(id))
		}
	}
}

func TestToken_DefaultLength(t *testing.T) {
	if got := len(Token(0)()); got != DefaultTokenLength {
		t.Fatalf("Token(0): got length %d, want %d", got, DefaultTokenLength)
	}
}

func TestToken_AlwaysValid(t *testing.T) {
	gen := Token(8)
	for i := 0; i < 500; i++ {
		tok := gen()
		if err := ValidateToken(tok); err != nil {
			t.Fatalf("Token: generated invalid token %q: %v", tok, err)
		}
	}
}

func TestToken_Uniqueness(t *testing.T) {
	gen := Token(12)
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("Token: duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestFixed(t *testing.T) {
	gen := Fixed("abc")
	if gen() != "abc" || gen() != "abc" {
		t.Fatal("Fixed: expected constant output")
	}
}

func TestValidateToken(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"Ab12", true},
		{"a_b-c", true},
		{"", false},
		{"1abc", false},
		{"ab cd", false},
		{"ab.cd", false},
		{strings.Repeat("a", 65), false},
	}
	for _, c := range cases {
		err := ValidateToken(c.in)
		if (err == nil) != c.ok {
			t.Errorf("ValidateToken(%q): got err=%v, want ok=%v", c.in, err, c.ok)
		}
	}
}

func TestSequence(t *testing.T) {
	seq := NewSequence("tok")
	if got := seq.Next(); got != "tok_1_to" {
		t.Fatalf("Next: got %q, want %q", got, "tok_1_to")
	}
	if got := seq.Next(); got != "tok_2_to" {
		t.Fatalf("Next: got %q, want %q", got, "tok_2_to")
	}
	if seq.Count() != 2 {
		t.Fatalf("Count: got %d, want 2", seq.Count())
	}
	if seq.Token() != "tok" {
		t.Fatalf("Token: got %q", seq.Token())
	}
}

func TestAnimationName(t *testing.T) {
	if got := AnimationName("tok_3_to"); got != "tok_3_to__to" {
		t.Errorf("AnimationName: got %q, want %q", got, "tok_3_to__to")
	}
	if got := AnimationName("x"); got != "x__x" {
		t.Errorf("AnimationName short: got %q, want %q", got, "x__x")
	}
}

func TestUUIDv7_Format(t *testing.T) {
	id := Default()
	if len(id) != 36 || len(strings.Split(id, "-")) != 5 {
		t.Fatalf("Default: bad UUID format %q", id)
	}
	if _, err := Parse(id); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("Parse: expected error for invalid UUID")
	}
}
