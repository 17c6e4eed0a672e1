// Package document implements the labeled tree that build documents are
// parsed into and resolved against.
package document

// NodeState tracks how far resolution has taken a node.
type NodeState int

const (
	// StateActive marks a node that still participates in resolution.
	StateActive NodeState = iota
	// StateCulled marks a node excluded by a false condition.
	StateCulled
	// StateConsumed marks a node whose content was folded elsewhere.
	StateConsumed
)

func (s NodeState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCulled:
		return "culled"
	case StateConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Node is one element of a build document tree. A parent exclusively owns
// its children; sharing subtrees between documents is never valid.
type Node struct {
	Tag      string
	Attr     map[string]string
	Text     string
	Children []*Node
	State    NodeState
}

// SetAttr stores an attribute value, allocating the map on first use.
func (n *Node) SetAttr(key, value string) {
	if n.Attr == nil {
		n.Attr = make(map[string]string, 4)
	}
	n.Attr[key] = value
}

// Clone returns a deep copy of the subtree rooted at n, including
// attribute maps and node states.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Tag: n.Tag, Text: n.Text, State: n.State}
	if n.Attr != nil {
		c.Attr = make(map[string]string, len(n.Attr))
		for k, v := range n.Attr {
			c.Attr[k] = v
		}
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Active reports whether the node still participates in resolution.
func (n *Node) Active() bool {
	return n != nil && n.State == StateActive
}

// Cull excludes the node and its subtree from all later passes.
// State transitions are monotonic; a consumed node stays consumed.
func (n *Node) Cull() {
	if n.State == StateActive {
		n.State = StateCulled
	}
}

// Consume marks the node as folded into another structure.
func (n *Node) Consume() {
	if n.State == StateActive {
		n.State = StateConsumed
	}
}

// Find returns the first active child with the given tag, or nil.
func (n *Node) Find(tag string) *Node {
	for _, c := range n.Children {
		if c.Active() && c.Tag == tag {
			return c
		}
	}
	return nil
}

// FindAll returns every active child with the given tag, in order.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Active() && c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// ChildText returns the text of the first active child with the given
// tag. The second result reports whether such a child exists.
func (n *Node) ChildText(tag string) (string, bool) {
	c := n.Find(tag)
	if c == nil {
		return "", false
	}
	return c.Text, true
}

// Walk visits n and every active descendant depth-first, stopping at the
// first error. Culled and consumed subtrees are not entered.
func (n *Node) Walk(fn func(*Node) error) error {
	if !n.Active() {
		return nil
	}
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}
