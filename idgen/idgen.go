// Package idgen provides the identifier conventions of a reconstruction run.
//
// Three kinds of identifiers exist:
//
//   - run IDs: UUIDv7, time-sortable, used by the journal.
//   - session tokens: short alphanumeric strings, one per run, prefixed to
//     every export identifier so that two exports never collide when
//     embedded in the same page.
//   - export identifiers: "<token>_<seq>_to", allocated by a Sequence.
//     Unique within a run because seq strictly increases; unique across
//     runs as long as tokens differ. Always a valid CSS identifier because
//     a token starts with a letter.
//
// Animation names derive from export identifiers: "<id>__<last two chars>".
package idgen

import (
	"crypto/rand"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

const (
	letters  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	alphanum = letters + "0123456789"
)

// DefaultTokenLength is the session token length used when none is configured.
const DefaultTokenLength = 8

// Token returns a Generator of session tokens of the given length drawn
// from [A-Za-z0-9]. The first character is always a letter.
func Token(length int) Generator {
	if length <= 0 {
		length = DefaultTokenLength
	}
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		b := make([]byte, length)
		b[0] = letters[int(buf[0])%len(letters)]
		for i := 1; i < length; i++ {
			b[i] = alphanum[int(buf[i])%len(alphanum)]
		}
		return string(b)
	}
}

// Fixed returns a Generator that always yields s. Runs with a fixed token
// produce byte-identical export identifiers.
func Fixed(s string) Generator {
	return func() string { return s }
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Default is the run ID generator.
var Default Generator = UUIDv7()

// Parse validates a UUID string and returns it or an error.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid run id: %w", err)
	}
	return u.String(), nil
}

// ValidateToken rejects session tokens that would yield invalid CSS
// identifiers: empty, longer than 64, not starting with a letter, or
// containing anything but letters, digits, '_' and '-'.
func ValidateToken(s string) error {
	if s == "" {
		return fmt.Errorf("idgen: token must not be empty")
	}
	if len(s) > 64 {
		return fmt.Errorf("idgen: token too long (max 64)")
	}
	if !isLetter(rune(s[0])) {
		return fmt.Errorf("idgen: token must start with a letter, got %q", s[0])
	}
	for _, r := range s {
		if !isLetter(r) && !(r >= '0' && r <= '9') && r != '_' && r != '-' {
			return fmt.Errorf("idgen: invalid character %q in token", r)
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Sequence allocates export identifiers for one session token.
// Not safe for concurrent use.
type Sequence struct {
	token string
	next  int
}

// NewSequence returns a Sequence whose first identifier is "<token>_1_to".
func NewSequence(token string) *Sequence {
	return &Sequence{token: token, next: 1}
}

// Next returns a fresh export identifier.
func (s *Sequence) Next() string {
	id := ExportID(s.token, s.next)
	s.next++
	return id
}

// Count reports how many identifiers have been allocated.
func (s *Sequence) Count() int { return s.next - 1 }

// Token returns the session token.
func (s *Sequence) Token() string { return s.token }

// ExportID formats the export identifier for sequence number n.
func ExportID(token string, n int) string {
	return token + "_" + strconv.Itoa(n) + "_to"
}

// AnimationName returns the @keyframes name bound to an export identifier.
func AnimationName(exportID string) string {
	suffix := exportID
	if len(suffix) > 2 {
		suffix = suffix[len(suffix)-2:]
	}
	return exportID + "__" + suffix
}
