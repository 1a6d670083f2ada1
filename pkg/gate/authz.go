package gate

import (
	"context"
	"fmt"
	"sync"
)

// RelationTuple is a directed edge in the relationship graph.
// (user:alice) -> [editor] -> (content:post-42)
type RelationTuple struct {
	Object   string `json:"object"`   // namespace:id (e.g. "content:post-42")
	Relation string `json:"relation"` // e.g. "viewer", "editor", "owner"
	Subject  string `json:"subject"`  // user or set (e.g. "user:alice", "group:devs")
}

// Authz is a relationship-based permission engine: direct tuples plus
// transitive group membership.
type Authz struct {
	mu     sync.RWMutex
	graph  map[string]struct{} // "object#relation@subject" set for fast lookup
	tuples []RelationTuple
}

// NewAuthz returns an empty permission graph.
func NewAuthz() *Authz {
	return &Authz{
		graph:  make(map[string]struct{}),
		tuples: make([]RelationTuple, 0),
	}
}

// WriteTuple adds a relationship. Idempotent.
func (a *Authz) WriteTuple(ctx context.Context, tuple RelationTuple) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := tupleKey(tuple)
	if _, exists := a.graph[key]; exists {
		return nil
	}
	a.graph[key] = struct{}{}
	a.tuples = append(a.tuples, tuple)
	return nil
}

// Check reports whether subject has relation on object, directly or
// through group membership.
func (a *Authz) Check(ctx context.Context, object, relation, subject string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.checkRecursive(object, relation, subject, make(map[string]bool))
}

func (a *Authz) checkRecursive(object, relation, subject string, visited map[string]bool) (bool, error) {
	if _, ok := a.graph[fmt.Sprintf("%s#%s@%s", object, relation, subject)]; ok {
		return true, nil
	}

	visitKey := fmt.Sprintf("%s#%s", object, relation)
	if visited[visitKey] {
		return false, nil // cycle or already expanded
	}
	visited[visitKey] = true

	// Group expansion: (object#relation@group:G) grants the relation to
	// every member of G.
	for _, t := range a.tuples {
		if t.Object != object || t.Relation != relation {
			continue
		}
		if !isGroup(t.Subject) {
			continue
		}
		isMember, _ := a.checkRecursive(t.Subject, "member", subject, visited)
		if isMember {
			return true, nil
		}
	}

	return false, nil
}

func tupleKey(t RelationTuple) string {
	return fmt.Sprintf("%s#%s@%s", t.Object, t.Relation, t.Subject)
}

func isGroup(subject string) bool {
	return len(subject) > 6 && subject[:6] == "group:"
}
