package graph

import (
	"fmt"

	"go.trai.ch/zerr"
)

var (
	// ErrSelfInheritance is returned when a seed lists itself as inherited.
	ErrSelfInheritance = zerr.New("seed inherits from itself")

	// ErrUnknownSeed is returned when a seed inherits from, or a query names,
	// a seed that was never declared.
	ErrUnknownSeed = zerr.New("unknown seed")

	// ErrDuplicateSeed is returned when the same seed is declared twice.
	ErrDuplicateSeed = zerr.New("seed declared twice")
)

// Declaration is one "seed: inherited..." structure line.
type Declaration struct {
	Name     string
	Inherits []string
}

// Builder constructs an inheritance graph from seed declarations.
type Builder struct {
	decls []Declaration
}

// NewBuilder creates a new graph builder for the given declarations.
func NewBuilder(decls []Declaration) *Builder {
	return &Builder{decls: decls}
}

// Build constructs the graph. Every inherited seed must itself be declared,
// and no seed may inherit from itself. The result is validated for cycles.
func (b *Builder) Build() (*Graph, error) {
	g := NewGraph()

	declared := make(map[string]bool, len(b.decls))
	for _, d := range b.decls {
		if declared[d.Name] {
			return nil, zerr.With(zerr.Wrap(ErrDuplicateSeed, ""), "seed", d.Name)
		}
		declared[d.Name] = true
		g.AddNode(d.Name)
	}

	for _, d := range b.decls {
		for _, parent := range d.Inherits {
			if parent == d.Name {
				return nil, zerr.With(zerr.Wrap(ErrSelfInheritance, ""), "seed", d.Name)
			}
			if !declared[parent] {
				return nil, zerr.With(zerr.With(zerr.Wrap(ErrUnknownSeed, ""), "seed", parent), "inherited_by", d.Name)
			}
			g.AddEdge(parent, d.Name)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	return g, nil
}

// BuildFromDeclarations is a convenience function that builds a graph directly.
func BuildFromDeclarations(decls []Declaration) (*Graph, error) {
	return NewBuilder(decls).Build()
}
