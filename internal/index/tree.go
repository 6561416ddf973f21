// Package index keeps the hierarchical subject -> topic -> difficulty catalog
// of known questions.
package index

import (
	"sync"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

// NodeType is the hierarchy level of a node.
type NodeType string

const (
	NodeRoot       NodeType = "root"
	NodeSubject    NodeType = "subject"
	NodeTopic      NodeType = "topic"
	NodeDifficulty NodeType = "difficulty"
)

// NodeMetadata carries per-node counters.
type NodeMetadata struct {
	ChildCount             int                         `json:"child_count"`
	DifficultyDistribution map[question.Difficulty]int `json:"difficulty_distribution"`
}

// Node is one level of the hierarchy. Only difficulty nodes hold questions.
type Node struct {
	Type      NodeType
	Value     string
	Questions []question.Question
	Metadata  NodeMetadata

	keys     []string
	children map[string]*Node
}

func newNode(t NodeType, value string) *Node {
	return &Node{
		Type:     t,
		Value:    value,
		children: make(map[string]*Node),
		Metadata: NodeMetadata{
			DifficultyDistribution: map[question.Difficulty]int{
				question.Beginner:     0,
				question.Intermediate: 0,
				question.Advanced:     0,
				question.Expert:       0,
			},
		},
	}
}

// Child returns the child stored under key.
func (n *Node) Child(key string) (*Node, bool) {
	c, ok := n.children[key]
	return c, ok
}

// Children returns the children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.keys))
	for _, k := range n.keys {
		out = append(out, n.children[k])
	}
	return out
}

func (n *Node) childOrCreate(t NodeType, key string) *Node {
	if c, ok := n.children[key]; ok {
		return c
	}
	c := newNode(t, key)
	n.children[key] = c
	n.keys = append(n.keys, key)
	n.Metadata.ChildCount = len(n.keys)
	return c
}

// collect appends every question in the subtree, children in insertion order.
func (n *Node) collect(dst []question.Question) []question.Question {
	dst = append(dst, n.Questions...)
	for _, k := range n.keys {
		dst = n.children[k].collect(dst)
	}
	return dst
}

func (n *Node) count() int {
	total := len(n.Questions)
	for _, c := range n.children {
		total += c.count()
	}
	return total
}

// Tree is the question index. It is safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	root  *Node
	total int
}

// New creates an empty index.
func New() *Tree {
	return &Tree{root: newNode(NodeRoot, "root")}
}

// Insert files q under subject, topic and difficulty. Duplicates are not detected.
func (t *Tree) Insert(q question.Question) {
	t.mu.Lock()
	defer t.mu.Unlock()

	subject := t.root.childOrCreate(NodeSubject, q.Subject)
	topic := subject.childOrCreate(NodeTopic, q.Topic)
	difficulty := topic.childOrCreate(NodeDifficulty, string(q.Difficulty))
	difficulty.Questions = append(difficulty.Questions, q)
	t.total++
}

// Len returns the number of indexed questions.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// QueryOptions narrows a Query. Empty fields do not filter; Limit <= 0 means no limit.
type QueryOptions struct {
	Subject    string
	Topic      string
	Difficulty question.Difficulty
	Limit      int
}

// Query returns the questions under the matching nodes, in traversal order.
// Filters apply top-down: subject, then topic within the remaining subjects,
// then difficulty within the remaining topics.
func (t *Tree) Query(opts QueryOptions) []question.Question {
	t.mu.RLock()
	defer t.mu.RUnlock()

	nodes := []*Node{t.root}

	if opts.Subject != "" {
		s, ok := t.root.Child(opts.Subject)
		if !ok {
			return []question.Question{}
		}
		nodes = []*Node{s}
	}

	if opts.Topic != "" {
		var topics []*Node
		for _, n := range nodes {
			topics = append(topics, findTopics(n, opts.Topic)...)
		}
		nodes = topics
	}

	if opts.Difficulty != "" {
		var leaves []*Node
		for _, n := range nodes {
			leaves = append(leaves, findDifficulties(n, string(opts.Difficulty))...)
		}
		nodes = leaves
	}

	result := []question.Question{}
	for _, n := range nodes {
		result = n.collect(result)
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// findTopics returns the topic nodes named topic below n (root or subject).
func findTopics(n *Node, topic string) []*Node {
	switch n.Type {
	case NodeTopic:
		if n.Value == topic {
			return []*Node{n}
		}
		return nil
	case NodeDifficulty:
		return nil
	}
	var out []*Node
	for _, c := range n.Children() {
		out = append(out, findTopics(c, topic)...)
	}
	return out
}

// findDifficulties returns the difficulty nodes keyed difficulty below n.
func findDifficulties(n *Node, difficulty string) []*Node {
	if n.Type == NodeDifficulty {
		if n.Value == difficulty {
			return []*Node{n}
		}
		return nil
	}
	if n.Type == NodeTopic {
		if c, ok := n.Child(difficulty); ok {
			return []*Node{c}
		}
		return nil
	}
	var out []*Node
	for _, c := range n.Children() {
		out = append(out, findDifficulties(c, difficulty)...)
	}
	return out
}

// Find returns the first question with the given id.
func (t *Tree) Find(id string) (question.Question, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var found question.Question
	ok := walk(t.root, func(n *Node) bool {
		for _, q := range n.Questions {
			if q.ID == id {
				found = q
				return true
			}
		}
		return false
	})
	return found, ok
}

// Remove deletes the first question with the given id. Emptied nodes are kept.
func (t *Tree) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := walk(t.root, func(n *Node) bool {
		for i, q := range n.Questions {
			if q.ID == id {
				n.Questions = append(n.Questions[:i:i], n.Questions[i+1:]...)
				return true
			}
		}
		return false
	})
	if removed {
		t.total--
	}
	return removed
}

// walk visits nodes depth-first until visit returns true.
func walk(n *Node, visit func(*Node) bool) bool {
	if visit(n) {
		return true
	}
	for _, k := range n.keys {
		if walk(n.children[k], visit) {
			return true
		}
	}
	return false
}
