// Package graph provides the seed inheritance graph and its ordering algorithms.
package graph

import "slices"

// Node represents a seed in the inheritance graph.
type Node struct {
	Name  string // Seed name
	Index int    // Declaration position, used to break ordering ties
}

// Graph is a directed acyclic graph of seeds. An edge runs from an
// inherited seed to the seed that inherits it, so a topological order
// places every seed after everything it inherits from.
type Graph struct {
	Nodes    map[string]*Node    // seed name -> node
	Children map[string][]string // seed name -> seeds inheriting it directly
	Parents  map[string][]string // seed name -> seeds it inherits directly
	order    []string            // declaration order
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
	}
}

// AddNode adds a seed node. Adding an existing seed keeps its original
// declaration position.
func (g *Graph) AddNode(name string) *Node {
	if node, ok := g.Nodes[name]; ok {
		return node
	}
	node := &Node{Name: name, Index: len(g.order)}
	g.Nodes[name] = node
	g.order = append(g.order, name)
	return node
}

// AddEdge records that child inherits parent. Duplicate edges are ignored.
// Both endpoints are added as nodes if missing.
func (g *Graph) AddEdge(parent, child string) {
	g.AddNode(parent)
	g.AddNode(child)

	if slices.Contains(g.Children[parent], child) {
		return
	}

	// Add to children map (forward edges)
	g.Children[parent] = append(g.Children[parent], child)

	// Add to parents map (reverse edges)
	g.Parents[child] = append(g.Parents[child], parent)
}

// GetChildren returns the seeds that directly inherit parent.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.Children {
		count += len(children)
	}
	return count
}

// LeafNodes returns seeds nothing inherits from, in declaration order.
func (g *Graph) LeafNodes() []string {
	var leaves []string
	for _, name := range g.order {
		if len(g.Children[name]) == 0 {
			leaves = append(leaves, name)
		}
	}
	return leaves
}

