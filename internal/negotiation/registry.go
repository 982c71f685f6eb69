package negotiation

import (
	"fmt"
	"sort"
)

// Registry maps counterpart identity to its single live link. It is owned by
// the engine goroutine and only ever holds fully constructed links.
type Registry struct {
	links map[string]*PeerLink
}

func NewRegistry() *Registry {
	return &Registry{links: make(map[string]*PeerLink)}
}

func (r *Registry) Get(peer string) (*PeerLink, bool) {
	l, ok := r.links[peer]
	return l, ok
}

// Put registers l. The previous link for the same peer must have been removed
// first.
func (r *Registry) Put(l *PeerLink) error {
	if prev, ok := r.links[l.Peer]; ok && prev != l {
		return fmt.Errorf("link %s for %s still registered", prev.ID, l.Peer)
	}
	r.links[l.Peer] = l
	return nil
}

// Remove deletes l if it is still the registered link for its peer.
func (r *Registry) Remove(l *PeerLink) bool {
	if r.links[l.Peer] != l {
		return false
	}
	delete(r.links, l.Peer)
	return true
}

// Current reports whether l is the registered link for its peer.
func (r *Registry) Current(l *PeerLink) bool {
	return l != nil && r.links[l.Peer] == l
}

func (r *Registry) Len() int {
	return len(r.links)
}

// All returns the registered links ordered by peer.
func (r *Registry) All() []*PeerLink {
	out := make([]*PeerLink, 0, len(r.links))
	for _, l := range r.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Peer < out[j].Peer })
	return out
}
