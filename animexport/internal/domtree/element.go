package domtree

import (
	"strings"

	"golang.org/x/net/html"
)

// element implements Node over an *html.Node of type ElementNode.
type element struct {
	n *html.Node
}

func (e *element) Tag() string { return e.n.Data }

func (e *element) Attr(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (e *element) SetAttr(key, val string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr[i].Val = val
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
}

func (e *element) RemoveAttr(key string) {
	kept := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	e.n.Attr = kept
}

func (e *element) Children() []Node {
	var out []Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &element{n: c})
		}
	}
	return out
}

func (e *element) Parent() Node {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return &element{n: p}
}

func (e *element) Text() string {
	var sb strings.Builder
	stack := []*html.Node{e.n}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			continue
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return sb.String()
}

func (e *element) SetText(s string) {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

func (e *element) Clone() Node {
	return &element{n: cloneTree(e.n)}
}

func (e *element) AppendChild(c Node) {
	ce, ok := c.(*element)
	if !ok {
		return
	}
	detach(ce.n)
	e.n.AppendChild(ce.n)
}

func (e *element) PrependChild(c Node) {
	ce, ok := c.(*element)
	if !ok {
		return
	}
	detach(ce.n)
	if e.n.FirstChild == nil {
		e.n.AppendChild(ce.n)
		return
	}
	e.n.InsertBefore(ce.n, e.n.FirstChild)
}

func (e *element) Remove() { detach(e.n) }

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// cloneTree deep-copies src with a worklist of (source, copied parent) pairs.
func cloneTree(src *html.Node) *html.Node {
	type job struct {
		src    *html.Node
		parent *html.Node
	}
	root := shallowCopy(src)
	var stack []job
	for c := src.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, job{src: c, parent: root})
	}
	// Children are pushed in reverse so they pop in order and AppendChild
	// preserves sibling order.
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cp := shallowCopy(j.src)
		j.parent.AppendChild(cp)
		for c := j.src.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, job{src: c, parent: cp})
		}
	}
	return root
}

func shallowCopy(n *html.Node) *html.Node {
	cp := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		cp.Attr = make([]html.Attribute, len(n.Attr))
		copy(cp.Attr, n.Attr)
	}
	return cp
}
