package main

// OnlineRoster is the set of players currently connected to the world, in join order.
type OnlineRoster struct {
	names []string
	index map[string]struct{}
}

func NewOnlineRoster() *OnlineRoster {
	return &OnlineRoster{index: make(map[string]struct{})}
}

// Add inserts name. Adding a name already present is a no-op.
func (r *OnlineRoster) Add(name string) {
	if _, ok := r.index[name]; ok {
		return
	}
	r.index[name] = struct{}{}
	r.names = append(r.names, name)
}

// Remove deletes name if present.
func (r *OnlineRoster) Remove(name string) {
	if _, ok := r.index[name]; !ok {
		return
	}
	delete(r.index, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}

func (r *OnlineRoster) Contains(name string) bool {
	_, ok := r.index[name]
	return ok
}

func (r *OnlineRoster) Len() int { return len(r.names) }

// Snapshot returns a copy of the online names in join order.
func (r *OnlineRoster) Snapshot() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
