// Package presence tracks which users are currently joined to which
// document's collaboration session. The registry is pure bookkeeping; it owns
// no document state and never fails on well-formed input.
package presence

import (
	"context"
	"sort"
	"sync"
)

// Registry maps document IDs to the set of currently-joined user IDs. The
// gateway takes a Registry rather than owning the map itself so the backing
// store can be swapped (in-memory for a single process, Redis when presence
// must be shared across processes).
type Registry interface {
	// Join adds userID to the document's member set, creating the set if
	// absent, and returns the resulting full member set. Joining twice has
	// the effect of joining once.
	Join(ctx context.Context, documentID, userID string) ([]string, error)

	// Leave removes userID from the document's member set and returns the
	// remaining members. Removing the last member deletes the document entry
	// entirely. Leaving a document the user is not a member of is a no-op.
	Leave(ctx context.Context, documentID, userID string) ([]string, error)

	// Members returns the current member set, empty if the document is
	// untracked.
	Members(ctx context.Context, documentID string) ([]string, error)
}

// MemoryRegistry is the default single-process Registry. All mutation happens
// under one mutex; the maps are never exposed to callers.
type MemoryRegistry struct {
	mu   sync.Mutex
	docs map[string]map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{docs: make(map[string]map[string]struct{})}
}

func (r *MemoryRegistry) Join(_ context.Context, documentID, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.docs[documentID]
	if members == nil {
		members = make(map[string]struct{})
		r.docs[documentID] = members
	}
	members[userID] = struct{}{}

	return sorted(members), nil
}

func (r *MemoryRegistry) Leave(_ context.Context, documentID, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.docs[documentID]
	if !ok {
		return nil, nil
	}
	delete(members, userID)

	// An empty set deletes the key; a tracked document always has at least
	// one member.
	if len(members) == 0 {
		delete(r.docs, documentID)
		return nil, nil
	}

	return sorted(members), nil
}

func (r *MemoryRegistry) Members(_ context.Context, documentID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return sorted(r.docs[documentID]), nil
}

func sorted(members map[string]struct{}) []string {
	out := make([]string, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}
