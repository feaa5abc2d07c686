package pattern

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownPattern = errors.New("pattern: unknown pattern")

// Registry maps pattern names to routines.
type Registry struct{ m map[string]Pattern }

func NewRegistry() *Registry { return &Registry{m: map[string]Pattern{}} }

// Builtin returns a registry holding every pattern in this package.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register("cycle", Cycle)
	r.Register("rainbow", Rainbow)
	r.Register("gradient", Gradient)
	r.Register("sweep", Sweep)
	return r
}

func (r *Registry) Register(name string, p Pattern) {
	if p == nil {
		return
	}
	r.m[name] = p
}

func (r *Registry) Get(name string) (Pattern, bool) { p, ok := r.m[name]; return p, ok }

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Playlist steps through a fixed list of pattern names, wrapping at the end.
type Playlist struct {
	reg   *Registry
	names []string
	idx   int
}

// NewPlaylist checks that every name is registered.
func NewPlaylist(reg *Registry, names ...string) (*Playlist, error) {
	if len(names) == 0 {
		return nil, errors.New("pattern: playlist has no patterns")
	}
	for _, n := range names {
		if _, ok := reg.Get(n); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, n)
		}
	}
	return &Playlist{reg: reg, names: append([]string(nil), names...)}, nil
}

// Current returns the name and routine at the playlist position.
func (p *Playlist) Current() (string, Pattern) {
	name := p.names[p.idx]
	fn, _ := p.reg.Get(name)
	return name, fn
}

// Next advances to the following pattern, looping back to the first.
func (p *Playlist) Next() {
	p.idx = (p.idx + 1) % len(p.names)
}

// Len is the number of entries.
func (p *Playlist) Len() int { return len(p.names) }
