package seeds

import (
	"fmt"
	"io"
	"strings"
)

// Write writes the merged seed declaration lines, one per line.
func (s *Structure) Write(w io.Writer) error {
	for _, line := range s.lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteDot writes the declared inheritance as a graphviz digraph.
func (s *Structure) WriteDot(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("digraph structure {\n")
	sb.WriteString("    node [color=lightblue2, style=filled];\n")
	for _, seed := range s.originalNames {
		for _, parent := range s.originalInherit[seed] {
			fmt.Fprintf(&sb, "    %q -> %q;\n", parent, seed)
		}
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// MermaidSyntax renders the declared inheritance as a mermaid flowchart,
// parents above children.
func (s *Structure) MermaidSyntax() string {
	var sb strings.Builder

	sb.WriteString("graph TD\n")
	for _, seed := range s.originalNames {
		id := sanitizeNodeID(seed)
		parents := s.originalInherit[seed]
		if len(parents) == 0 {
			fmt.Fprintf(&sb, "    %s[%s]\n", id, seed)
			continue
		}
		for _, parent := range parents {
			fmt.Fprintf(&sb, "    %s --> %s[%s]\n", sanitizeNodeID(parent), id, seed)
		}
	}

	return sb.String()
}

// sanitizeNodeID turns a seed name into a valid mermaid node ID.
func sanitizeNodeID(seed string) string {
	return strings.NewReplacer(
		".", "_",
		"-", "_",
		"+", "_",
		" ", "_",
	).Replace(seed)
}
