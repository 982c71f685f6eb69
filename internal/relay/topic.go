package relay

import "sort"

// Topic is a broadcast scope. It exists while it has subscribers.
type Topic struct {
	Name string

	subscribers map[*Client]struct{}

	// presence maps a tracked key to the client that announced it.
	presence map[string]*Client
}

func newTopic(name string) *Topic {
	return &Topic{
		Name:        name,
		subscribers: make(map[*Client]struct{}),
		presence:    make(map[string]*Client),
	}
}

func (t *Topic) empty() bool {
	return len(t.subscribers) == 0
}

// keys returns tracked presence keys in a stable order.
func (t *Topic) keys() []string {
	out := make([]string, 0, len(t.presence))
	for k := range t.presence {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
