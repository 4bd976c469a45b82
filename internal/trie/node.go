package trie

import "sort"

// Node is a single node in the trie. Each node exclusively owns its children.
type Node struct {
	// children maps the next character to the child node
	children map[rune]*Node

	// terminal marks that the path from the root to this node spells a word
	terminal bool
}

// newNode creates a new trie node
func newNode() *Node {
	return &Node{
		children: make(map[rune]*Node),
	}
}

// child returns the child for r, or nil if there is none
func (n *Node) child(r rune) *Node {
	return n.children[r]
}

// prunable reports whether the node supports no word and can be dropped by its parent
func (n *Node) prunable() bool {
	return !n.terminal && len(n.children) == 0
}

// sortedKeys returns the child characters in ascending order
func (n *Node) sortedKeys() []rune {
	keys := make([]rune, 0, len(n.children))
	for r := range n.children {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
