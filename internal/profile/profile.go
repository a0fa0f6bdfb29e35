// Package profile defines Channel Profiles — the capability envelope of one
// delivery destination — and a hot-swappable registry of them.
//
// The registry's read-mostly, atomic-pointer-swap shape is grounded on
// internal/routing.ModelRouter's routes field (atomic.Pointer[map[string]...]),
// adapted here from model-route lookups to channel-profile lookups: both are
// "resolve a name to a small immutable record, allow registration at
// runtime, never block readers."
package profile

import (
	"fmt"
	"sync/atomic"
)

// Mode is the delivery contract a channel defaults to.
type Mode string

const (
	ModeBlock     Mode = "block"
	ModeStreaming Mode = "streaming"
	ModeBatch     Mode = "batch"
)

// Profile is a named capability record for one destination. It carries no
// version field.
type Profile struct {
	Name              string
	MaxChars          int // 0 means unset/unbounded
	MaxLines          int // 0 means unset/unbounded
	MinChars          int
	SupportsEdit      bool
	SupportsMarkdown  bool
	CoalesceGapMillis int
	DefaultMode       Mode
}

// Validate rejects malformed profiles per §4.8: maxChars < minChars,
// negative coalesceGap, absent required fields, or an unknown defaultMode.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: name is required")
	}
	if p.MaxChars > 0 && p.MaxChars < p.MinChars {
		return fmt.Errorf("profile %q: maxChars (%d) < minChars (%d)", p.Name, p.MaxChars, p.MinChars)
	}
	if p.MaxLines < 0 {
		return fmt.Errorf("profile %q: maxLines must be >= 0", p.Name)
	}
	if p.CoalesceGapMillis < 0 {
		return fmt.Errorf("profile %q: coalesceGap must be >= 0", p.Name)
	}
	switch p.DefaultMode {
	case ModeBlock, ModeStreaming, ModeBatch:
	default:
		return fmt.Errorf("profile %q: unknown defaultMode %q", p.Name, p.DefaultMode)
	}
	return nil
}

// Registry resolves profile names to Profiles and allows registration of
// additional profiles at runtime without blocking concurrent readers.
type Registry struct {
	profiles atomic.Pointer[map[string]Profile]
}

// NewRegistry returns a Registry preloaded with the canonical defaults.
func NewRegistry() *Registry {
	r := &Registry{}
	m := make(map[string]Profile, len(Canonical))
	for _, p := range Canonical {
		m[p.Name] = p
	}
	r.profiles.Store(&m)
	return r
}

// Get looks up a profile by name.
func (r *Registry) Get(name string) (Profile, bool) {
	m := *r.profiles.Load()
	p, ok := m[name]
	return p, ok
}

// Register validates and adds (or replaces) a profile. Safe for concurrent
// use with Get; readers never observe a partially-updated map.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	old := *r.profiles.Load()
	next := make(map[string]Profile, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[p.Name] = p
	r.profiles.Store(&next)
	return nil
}

// All returns a snapshot of every registered profile.
func (r *Registry) All() map[string]Profile {
	m := *r.profiles.Load()
	out := make(map[string]Profile, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Canonical is the set of predefined profiles from the specification's
// channel table.
var Canonical = []Profile{
	{Name: "telegram", MaxChars: 4096, MinChars: 100, SupportsEdit: true, SupportsMarkdown: true, CoalesceGapMillis: 200, DefaultMode: ModeStreaming},
	{Name: "whatsapp", MaxChars: 65536, MinChars: 200, SupportsEdit: false, SupportsMarkdown: false, CoalesceGapMillis: 500, DefaultMode: ModeBlock},
	{Name: "discord", MaxChars: 2000, MaxLines: 17, MinChars: 150, SupportsEdit: true, SupportsMarkdown: true, CoalesceGapMillis: 300, DefaultMode: ModeStreaming},
	{Name: "slack", MaxChars: 40000, MinChars: 200, SupportsEdit: true, SupportsMarkdown: true, CoalesceGapMillis: 400, DefaultMode: ModeBlock},
	{Name: "web", MinChars: 1, SupportsEdit: true, SupportsMarkdown: true, CoalesceGapMillis: 0, DefaultMode: ModeStreaming},
	{Name: "console", MinChars: 1, SupportsEdit: false, SupportsMarkdown: false, CoalesceGapMillis: 0, DefaultMode: ModeStreaming},
}
