package classifications

import (
	"context"
	"fmt"
	"slices"
)

// target is a resolved parent: a batch node (node >= 0) or a stored
// classification outside the batch.
type target struct {
	node   int
	stored Classification
}

// node is one batch record in the resolver arena.
type node struct {
	rec      Record
	existing *Classification
	id       string
	parent   *target
}

// resolver owns the arena of batch nodes and resolves identities and
// parent references against the batch first and the store second.
type resolver struct {
	store   Store
	nodes   []*node
	byAlias map[string]int
	byFinal map[string]int
	byKey   map[string]int
	stored  map[string]*Classification
}

func newResolver(store Store, batch []Record) *resolver {
	r := &resolver{
		store:   store,
		nodes:   make([]*node, len(batch)),
		byAlias: make(map[string]int, len(batch)),
		byFinal: make(map[string]int, len(batch)),
		byKey:   make(map[string]int, len(batch)),
		stored:  make(map[string]*Classification),
	}
	for i, rec := range batch {
		r.nodes[i] = &node{rec: rec}
		r.byKey[rec.ref()] = i
		if rec.ID != "" {
			r.byAlias[rec.ID] = i
		}
	}
	return r
}

// identify matches every record to its stored classification, by
// identifier first and (key, domain) second, and assigns final identifiers.
// Unmatched records receive a generated identifier.
func (r *resolver) identify(ctx context.Context, newID func() string) error {
	for i, n := range r.nodes {
		if n.rec.ID != "" {
			c, ok, err := r.findStored(ctx, n.rec.ID)
			if err != nil {
				return err
			}
			if ok {
				n.existing = c
			}
		}

		if n.existing == nil {
			c, ok, err := r.store.FindByKey(ctx, n.rec.Key, n.rec.Domain)
			if err != nil {
				return storeErr("find by key", err)
			}
			if ok {
				n.existing = &c
				r.stored[c.ID] = &c
			}
		}

		if n.existing != nil {
			n.id = n.existing.ID
		} else {
			n.id = newID()
		}
		r.byFinal[n.id] = i
	}
	return nil
}

// resolveParents resolves each record's parent reference. A parent id is
// looked up globally; a parent key only within the child's own domain.
// When both are set they must name the same classification.
func (r *resolver) resolveParents(ctx context.Context) error {
	for _, n := range r.nodes {
		rec := n.rec
		var byID, byKey *target

		if rec.ParentID != "" {
			t, ok, err := r.lookupID(ctx, rec.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return &ValidationError{
					Reason: fmt.Sprintf("parent id %s not found", rec.ParentID),
					Key:    rec.Key,
					Domain: rec.Domain,
				}
			}
			byID = &t
		}

		if rec.ParentKey != "" {
			t, ok, err := r.lookupKey(ctx, rec.ParentKey, rec.Domain)
			if err != nil {
				return err
			}
			if !ok {
				return &ValidationError{
					Reason: fmt.Sprintf("parent key %s not found in domain %s", rec.ParentKey, rec.Domain),
					Key:    rec.Key,
					Domain: rec.Domain,
				}
			}
			byKey = &t
		}

		switch {
		case byID != nil && byKey != nil:
			if r.targetID(*byID) != r.targetID(*byKey) {
				return &ValidationError{
					Reason: fmt.Sprintf("parent id %s and parent key %s name different classifications", rec.ParentID, rec.ParentKey),
					Key:    rec.Key,
					Domain: rec.Domain,
				}
			}
			n.parent = byID
		case byID != nil:
			n.parent = byID
		case byKey != nil:
			n.parent = byKey
		}
	}
	return nil
}

// order returns node indexes with every batch parent ahead of its children.
// Each node has at most one parent, so the depth-first walk follows a single
// chain; meeting an in-progress node closes a cycle.
func (r *resolver) order() ([]int, error) {
	const (
		unvisited = iota
		inProgress
		done
	)

	state := make([]uint8, len(r.nodes))
	out := make([]int, 0, len(r.nodes))

	for start := range r.nodes {
		if state[start] != unvisited {
			continue
		}

		var path []int
		cur := start
		for state[cur] != done {
			if state[cur] == inProgress {
				cycle := path[slices.Index(path, cur):]
				keys := make([]string, len(cycle))
				for i, idx := range cycle {
					keys[i] = r.nodes[idx].rec.ref()
				}
				return nil, &ConflictError{Reason: "parent cycle in batch", Keys: keys}
			}
			state[cur] = inProgress
			path = append(path, cur)

			p := r.nodes[cur].parent
			if p == nil || p.node < 0 {
				break
			}
			cur = p.node
		}

		for i := len(path) - 1; i >= 0; i-- {
			state[path[i]] = done
			out = append(out, path[i])
		}
	}
	return out, nil
}

// checkAncestry walks each record's ancestor chain across batch and stored
// classifications and rejects chains that return to a classification
// already on the path, such as a record moved beneath its own stored child.
func (r *resolver) checkAncestry(ctx context.Context) error {
	safe := make(map[string]bool)

	for _, n := range r.nodes {
		onPath := make(map[string]bool)
		var path []string

		for id := n.id; id != "" && !safe[id]; {
			if onPath[id] {
				keys := make([]string, len(path))
				for i, p := range path {
					keys[i] = r.refOf(p)
				}
				return &ConflictError{Reason: "parent cycle through stored ancestors", Keys: keys}
			}
			onPath[id] = true
			path = append(path, id)

			next, err := r.parentOf(ctx, id)
			if err != nil {
				return err
			}
			id = next
		}

		for _, p := range path {
			safe[p] = true
		}
	}
	return nil
}

// parentOf returns the parent identifier id will have after the merge.
func (r *resolver) parentOf(ctx context.Context, id string) (string, error) {
	if idx, ok := r.byFinal[id]; ok {
		p := r.nodes[idx].parent
		if p == nil {
			return "", nil
		}
		return r.targetID(*p), nil
	}

	c, ok, err := r.findStored(ctx, id)
	if err != nil || !ok {
		return "", err
	}
	return c.ParentID, nil
}

func (r *resolver) lookupID(ctx context.Context, id string) (target, bool, error) {
	if idx, ok := r.byAlias[id]; ok {
		return target{node: idx}, true, nil
	}
	if idx, ok := r.byFinal[id]; ok {
		return target{node: idx}, true, nil
	}

	c, ok, err := r.findStored(ctx, id)
	if err != nil || !ok {
		return target{}, false, err
	}
	return target{node: -1, stored: *c}, true, nil
}

func (r *resolver) lookupKey(ctx context.Context, key, domain string) (target, bool, error) {
	if idx, ok := r.byKey[domain+"/"+key]; ok {
		return target{node: idx}, true, nil
	}

	c, ok, err := r.store.FindByKey(ctx, key, domain)
	if err != nil {
		return target{}, false, storeErr("find by key", err)
	}
	if !ok {
		return target{}, false, nil
	}
	r.stored[c.ID] = &c
	return target{node: -1, stored: c}, true, nil
}

// findStored looks up id in the store, caching hits and misses.
func (r *resolver) findStored(ctx context.Context, id string) (*Classification, bool, error) {
	if c, ok := r.stored[id]; ok {
		return c, c != nil, nil
	}

	c, ok, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, false, storeErr("find by id", err)
	}
	if !ok {
		r.stored[id] = nil
		return nil, false, nil
	}
	r.stored[id] = &c
	return &c, true, nil
}

func (r *resolver) targetID(t target) string {
	if t.node >= 0 {
		return r.nodes[t.node].id
	}
	return t.stored.ID
}

func (r *resolver) targetKey(t target) string {
	if t.node >= 0 {
		return r.nodes[t.node].rec.Key
	}
	return t.stored.Key
}

func (r *resolver) refOf(id string) string {
	if idx, ok := r.byFinal[id]; ok {
		return r.nodes[idx].rec.ref()
	}
	if c := r.stored[id]; c != nil {
		return c.Domain + "/" + c.Key
	}
	return id
}
