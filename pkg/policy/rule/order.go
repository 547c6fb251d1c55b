package rule

import (
	"container/heap"
	"sort"
)

// orderRules produces the evaluation order for the given active rules:
// a topological order of the dependency graph, breaking ties among rules
// with no ordering constraint between them by ascending priority (lower is
// more urgent), then by rule ID for determinism.
//
// Dependency edges pointing at rules outside the set (disabled or unknown)
// impose no constraint; registration already validated that every referenced
// rule exists.
//
// Returns a CycleDetectedError naming the rules left unordered when the
// graph contains a cycle.
func orderRules(rules []*Rule) ([]*Rule, error) {
	byID := make(map[string]*Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}

	// indegree counts unsatisfied dependencies; dependents is the reverse
	// adjacency used to release rules as their dependencies complete.
	indegree := make(map[string]int, len(rules))
	dependents := make(map[string][]string, len(rules))
	for _, r := range rules {
		indegree[r.ID] = 0
	}
	for _, r := range rules {
		for _, dep := range r.DependsOn {
			if _, ok := byID[dep]; !ok {
				continue
			}
			indegree[r.ID]++
			dependents[dep] = append(dependents[dep], r.ID)
		}
	}

	ready := &ruleHeap{}
	heap.Init(ready)
	for _, r := range rules {
		if indegree[r.ID] == 0 {
			heap.Push(ready, r)
		}
	}

	ordered := make([]*Rule, 0, len(rules))
	for ready.Len() > 0 {
		r := heap.Pop(ready).(*Rule)
		ordered = append(ordered, r)
		for _, id := range dependents[r.ID] {
			indegree[id]--
			if indegree[id] == 0 {
				heap.Push(ready, byID[id])
			}
		}
	}

	if len(ordered) != len(rules) {
		var members []string
		for id, deg := range indegree {
			if deg > 0 {
				members = append(members, id)
			}
		}
		sort.Strings(members)
		return nil, &CycleDetectedError{Members: members}
	}

	return ordered, nil
}

// ruleHeap is a min-heap of rules ordered by (priority asc, id asc).
type ruleHeap []*Rule

func (h ruleHeap) Len() int { return len(h) }

func (h ruleHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].ID < h[j].ID
}

func (h ruleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *ruleHeap) Push(x any) { *h = append(*h, x.(*Rule)) }

func (h *ruleHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	*h = old[:n-1]
	return r
}
