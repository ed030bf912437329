// Package domtree is the markup abstraction the reconstruction pipeline
// works against. Node is a small element-only view of a DOM; the concrete
// implementation wraps golang.org/x/net/html so documents captured from a
// live browser and static fixtures share one code path.
//
// Traversals use an explicit stack rather than recursion.
package domtree

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoMatch is returned when a selector matches nothing.
var ErrNoMatch = errors.New("domtree: no element matches selector")

// Node is an element in a document or in a detached tree.
type Node interface {
	// Tag is the lower-case local name (e.g. "g", "path").
	Tag() string
	Attr(key string) (string, bool)
	SetAttr(key, val string)
	RemoveAttr(key string)
	// Children returns element children only, in document order.
	Children() []Node
	// Parent returns nil for roots and detached nodes.
	Parent() Node
	// Text concatenates all descendant text.
	Text() string
	// SetText replaces all children with a single text node.
	SetText(s string)
	// Clone deep-copies the node. The copy is detached.
	Clone() Node
	AppendChild(c Node)
	PrependChild(c Node)
	// Remove detaches the node from its parent.
	Remove()
}

// ID returns the node's id attribute, or "".
func ID(n Node) string {
	v, _ := n.Attr("id")
	return v
}

// Document is a parsed page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("domtree: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// QueryAll returns every element matching a CSS selector, in document order.
func (d *Document) QueryAll(selector string) ([]Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("domtree: selector %q: %w", selector, err)
	}
	matches := sel.MatchAll(d.root)
	out := make([]Node, len(matches))
	for i, m := range matches {
		out[i] = &element{n: m}
	}
	return out, nil
}

// QueryFirst returns the first element matching selector, or ErrNoMatch.
func (d *Document) QueryFirst(selector string) (Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("domtree: selector %q: %w", selector, err)
	}
	m := sel.MatchFirst(d.root)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return &element{n: m}, nil
}

// HTML serialises the whole document.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("domtree: render document: %w", err)
	}
	return buf.String(), nil
}

// NewElement creates a detached element in the SVG namespace.
func NewElement(tag string) Node {
	return &element{n: &html.Node{
		Type:      html.ElementNode,
		Data:      tag,
		DataAtom:  atom.Lookup([]byte(tag)),
		Namespace: "svg",
	}}
}

// Walk visits root and its element descendants in document order.
// Returning false from visit skips that node's subtree.
func Walk(root Node, visit func(Node) bool) {
	if root == nil {
		return
	}
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(n) {
			continue
		}
		kids := n.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Descendants returns the element descendants of root (root excluded)
// accepted by match, in document order.
func Descendants(root Node, match func(Node) bool) []Node {
	var out []Node
	Walk(root, func(n Node) bool {
		if n != root && match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// HasAncestor reports whether some ancestor of n has the given tag.
func HasAncestor(n Node, tag string) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Tag() == tag {
			return true
		}
	}
	return false
}

// Render writes the markup of n and its subtree.
func Render(w io.Writer, n Node) error {
	e, ok := n.(*element)
	if !ok {
		return fmt.Errorf("domtree: cannot render %T", n)
	}
	return html.Render(w, e.n)
}

// Fingerprint returns the SHA-256 hex digest of n's markup.
func Fingerprint(n Node) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return "", err
	}
	h := sha256.Sum256(buf.Bytes())
	return fmt.Sprintf("%x", h), nil
}
