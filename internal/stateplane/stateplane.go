// Package stateplane implements the per-(user,role,loop) runtime settings
// that change continuously as users operate the system: current
// talk/listen permission, volume, per-role keypad layout, per-domain
// keyset layout presets, per-user opaque data, and per-loop recording
// flags. Unlike the entity store, these records come into existence
// lazily on first write and are never explicitly deleted.
package stateplane

import (
	"fmt"
	"sync"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

type tripleKey struct {
	User string
	Role string
	Loop string
}

// Plane holds the runtime-only maps (talk state, volume) directly, and
// delegates the attributes the data model assigns to entities (role
// layout, keyset layout, user data, loop recording) through the entity
// store so they share its invariants and indexing.
type Plane struct {
	store *store.Store

	mu    sync.RWMutex
	state map[tripleKey]domain.Permission
	volume map[tripleKey]int
}

func New(s *store.Store) *Plane {
	return &Plane{
		store: s,
		state: map[tripleKey]domain.Permission{},
		volume: map[tripleKey]int{},
	}
}

// SetState records the current talk/listen permission for (user, role, loop).
func (p *Plane) SetState(user, role, loop string, perm domain.Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[tripleKey{user, role, loop}] = perm
}

// GetState returns NONE for any missing intermediate.
func (p *Plane) GetState(user, role, loop string) domain.Permission {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state[tripleKey{user, role, loop}]
}

// SetVolume rejects values outside [0,100] without mutating.
func (p *Plane) SetVolume(user, role, loop string, v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: volume %d out of range [0,100]", domain.ErrInvalidInput, v)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume[tripleKey{user, role, loop}] = v
	return nil
}

// GetVolume defaults to 0 on a read-miss.
func (p *Plane) GetVolume(user, role, loop string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume[tripleKey{user, role, loop}]
}

// SetRoleLayout replaces a role's loop-id -> position map.
func (p *Plane) SetRoleLayout(roleID string, layout map[string]int) error {
	_, err := p.store.UpdateKey(domain.KindRole, roleID, "layout", layout)
	return err
}

// GetRoleLayout returns an empty map if unset, and an error if the role
// does not exist.
func (p *Plane) GetRoleLayout(roleID string) (map[string]int, error) {
	v, err := p.store.GetKey(domain.KindRole, roleID, "layout")
	if err != nil {
		return nil, err
	}
	layout, _ := v.(map[string]int)
	if layout == nil {
		layout = map[string]int{}
	}
	return layout, nil
}

// SetKeysetLayout stores a named keypad preset for a domain.
func (p *Plane) SetKeysetLayout(domainID, name string, layout map[string]any) error {
	v, err := p.store.GetKey(domain.KindDomain, domainID, "layouts")
	if err != nil {
		return err
	}
	layouts, _ := v.(map[string]map[string]any)
	if layouts == nil {
		layouts = map[string]map[string]any{}
	}
	layouts[name] = layout
	_, err = p.store.UpdateKey(domain.KindDomain, domainID, "layouts", layouts)
	return err
}

// GetKeysetLayout returns the deterministic default when the named layout
// has never been set.
func (p *Plane) GetKeysetLayout(domainID, name string) (map[string]any, error) {
	v, err := p.store.GetKey(domain.KindDomain, domainID, "layouts")
	if err != nil {
		return nil, err
	}
	layouts, _ := v.(map[string]map[string]any)
	if layout, ok := layouts[name]; ok {
		return layout, nil
	}
	return domain.DefaultKeysetLayout(), nil
}

// SetUserData replaces a user's opaque client-preference bag.
func (p *Plane) SetUserData(userID string, data map[string]any) error {
	_, err := p.store.UpdateKey(domain.KindUser, userID, "data", data)
	return err
}

func (p *Plane) GetUserData(userID string) (map[string]any, error) {
	v, err := p.store.GetKey(domain.KindUser, userID, "data")
	if err != nil {
		return nil, err
	}
	data, _ := v.(map[string]any)
	return data, nil
}

// SetRecording flips a loop's recording flag.
func (p *Plane) SetRecording(loopID string, on bool) error {
	_, err := p.store.UpdateKey(domain.KindLoop, loopID, "recording", on)
	return err
}

// RecordedLoop pairs a loop id with its multicast endpoint for the recorder
// to subscribe to.
type RecordedLoop struct {
	ID        string           `json:"id"`
	Multicast domain.Multicast `json:"multicast"`
}

// GetRecordedLoops returns every loop across the whole tree whose recording
// flag is currently true.
func (p *Plane) GetRecordedLoops() ([]RecordedLoop, error) {
	root, err := p.store.Export()
	if err != nil {
		return nil, err
	}
	var out []RecordedLoop
	visit := func(loops map[string]*domain.Loop) {
		for id, l := range loops {
			if l.Recording {
				out = append(out, RecordedLoop{ID: id, Multicast: l.Multicast})
			}
		}
	}
	for _, d := range root {
		visit(d.Loops)
		for _, proj := range d.Projects {
			visit(proj.Loops)
		}
	}
	return out, nil
}

// StateEntry is one (user, role, loop) triple's runtime state, the unit the
// persistence bridge snapshots and restores; tripleKey itself can't cross a
// JSON boundary since Go only marshals string-keyed maps.
type StateEntry struct {
	User       string           `json:"user"`
	Role       string           `json:"role"`
	Loop       string           `json:"loop"`
	Permission domain.Permission `json:"permission"`
	Volume     int              `json:"volume"`
}

// Export flattens the talk-state and volume maps into a snapshot the
// persistence bridge can serialize.
func (p *Plane) Export() []StateEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := map[tripleKey]bool{}
	var out []StateEntry
	for k, perm := range p.state {
		seen[k] = true
		out = append(out, StateEntry{User: k.User, Role: k.Role, Loop: k.Loop, Permission: perm, Volume: p.volume[k]})
	}
	for k, vol := range p.volume {
		if seen[k] {
			continue
		}
		out = append(out, StateEntry{User: k.User, Role: k.Role, Loop: k.Loop, Volume: vol})
	}
	return out
}

// Import replaces the in-memory runtime maps with a previously exported
// snapshot, the counterpart to Export used by the persistence bridge's load
// path.
func (p *Plane) Import(entries []StateEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = make(map[tripleKey]domain.Permission, len(entries))
	p.volume = make(map[tripleKey]int, len(entries))
	for _, e := range entries {
		k := tripleKey{User: e.User, Role: e.Role, Loop: e.Loop}
		if e.Permission != domain.PermissionNone {
			p.state[k] = e.Permission
		}
		if e.Volume != 0 {
			p.volume[k] = e.Volume
		}
	}
}

// HighestPort returns the maximum multicast port across every loop in the
// tree, or zero if there are none.
func (p *Plane) HighestPort() (int, error) {
	root, err := p.store.Export()
	if err != nil {
		return 0, err
	}
	highest := 0
	visit := func(loops map[string]*domain.Loop) {
		for _, l := range loops {
			if l.Multicast.Port > highest {
				highest = l.Multicast.Port
			}
		}
	}
	for _, d := range root {
		visit(d.Loops)
		for _, proj := range d.Projects {
			visit(proj.Loops)
		}
	}
	return highest, nil
}
