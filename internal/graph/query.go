package graph

// Ancestors returns every seed name inherits, directly or transitively.
// Each directly inherited seed is preceded by its own ancestors, and
// duplicates keep their first position.
func (g *Graph) Ancestors(name string) []string {
	seen := map[string]bool{name: true}
	var out []string

	var visit func(n string)
	visit = func(n string) {
		for _, parent := range g.Parents[n] {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			visit(parent)
			out = append(out, parent)
		}
	}
	visit(name)

	return out
}

// Descendants returns every seed that inherits name, directly or
// transitively, in topological order.
func (g *Graph) Descendants(name string) []string {
	reached := make(map[string]bool)
	stack := []string{name}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range g.Children[n] {
			if !reached[child] {
				reached[child] = true
				stack = append(stack, child)
			}
		}
	}
	delete(reached, name)

	order, err := g.TopologicalSort()
	if err != nil {
		order = g.order
	}

	var out []string
	for _, n := range order {
		if reached[n] {
			out = append(out, n)
		}
	}
	return out
}

// Expand returns the topological order of all seeds together with the
// transitively expanded, irreflexive inherit list of each.
func (g *Graph) Expand() ([]string, map[string][]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, nil, err
	}

	inherit := make(map[string][]string, len(order))
	for _, name := range order {
		inherit[name] = g.Ancestors(name)
	}
	return order, inherit, nil
}
