package graph

import (
	"container/list"
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// ProcessingQueue holds seeds that are ready to be emitted (in-degree 0).
// It is kept sorted by declaration position so that the topological order
// is a pure function of the input declarations.
type ProcessingQueue struct {
	queue *list.List
	g     *Graph
}

// NewProcessingQueue creates a new empty processing queue for g.
func (g *Graph) NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
		g:     g,
	}
}

// InitializeQueue creates a processing queue populated with all nodes
// that have in-degree of 0 (no inherited seeds).
func (g *Graph) InitializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := g.NewProcessingQueue()

	for _, name := range g.order {
		if inDegree[name] == 0 {
			pq.Enqueue(name)
		}
	}

	return pq
}

// Enqueue inserts a node at its declaration position.
func (pq *ProcessingQueue) Enqueue(node string) {
	idx := pq.g.Nodes[node].Index
	for e := pq.queue.Back(); e != nil; e = e.Prev() {
		if pq.g.Nodes[e.Value.(string)].Index < idx {
			pq.queue.InsertAfter(node, e)
			return
		}
	}
	pq.queue.PushFront(node)
}

// Dequeue removes and returns the earliest-declared ready node.
// Returns empty string and false if queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of nodes in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no nodes.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees computes the number of incoming edges for each node.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.Nodes))

	for name := range g.Nodes {
		inDegree[name] = 0
	}

	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// ErrCycleDetected is matched by every *CycleError.
var ErrCycleDetected = zerr.New("cycle detected in seed inheritance")

// CycleInfo contains information about incomplete processing due to cycles.
type CycleInfo struct {
	TotalNodes        int      // Total number of seeds in the graph
	ProcessedNodes    int      // Number of seeds successfully ordered
	UnprocessedNodes  []string // Seeds that couldn't be ordered (part of or blocked by cycle)
	CycleParticipants []string // Seeds that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// CycleError describes an inheritance cycle: which seeds form it and which
// are only blocked behind it.
type CycleError struct {
	Info *CycleInfo
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in seed inheritance: %d of %d seeds could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}

	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nSeeds in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}

		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}

		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nSeeds blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

// Unwrap lets errors.Is match ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns information
// about any nodes that couldn't be processed, or nil when the graph is acyclic.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	processed := make(map[string]bool)

	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		processed[node] = true

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(processed) == len(g.Nodes) {
		return nil
	}

	var unprocessed []string
	unprocessedSet := make(map[string]bool)
	for _, name := range g.order {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
			unprocessedSet[name] = true
		}
	}

	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// FindCyclePath finds the path that forms a cycle starting from the given node.
// Returns the ordered list of nodes forming the cycle (including the start node at both ends).
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}

	return nil
}

func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}

		if child == target {
			*path = append(*path, target)
			return true
		}

		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)

		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}

		// Backtrack
		*path = (*path)[:len(*path)-1]
	}

	return false
}

// canReachSelf checks if a node can reach itself through the subgraph
// defined by the allowedNodes set.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target node.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}

	if visited[current] || !allowedNodes[current] {
		return false
	}

	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}

	return false
}

// TopologicalSort returns seeds ordered so that every seed follows all the
// seeds it inherits from. Ties are broken by declaration order, so an input
// that is already sorted comes back unchanged.
// Returns a *CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	result := make([]string, 0, len(g.Nodes))

	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		result = append(result, node)

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(result) != len(g.Nodes) {
		return nil, &CycleError{Info: g.DetectIncompleteProcessing()}
	}

	return result, nil
}

// Validate checks the graph for cycles. Call it after building the graph
// to fail fast before any seed is grown.
func (g *Graph) Validate() error {
	if cycleInfo := g.DetectIncompleteProcessing(); cycleInfo != nil {
		return &CycleError{Info: cycleInfo}
	}
	return nil
}
