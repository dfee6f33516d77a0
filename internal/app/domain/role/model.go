// Package role holds the role and permission-set models. Permission sets are
// keyed by slugified module and submodule names; see the permissions service
// for resolution and merge semantics.
package role

import (
	"encoding/json"
	"time"
)

// Actions is the capability record for one submodule. A missing action means
// that action is denied.
type Actions struct {
	Read   bool `json:"read,omitempty"`
	Write  bool `json:"write,omitempty"`
	Delete bool `json:"delete,omitempty"`
}

// ModuleGrant is the grant for one main module: either the whole-module
// sentinel (Entire) or per-submodule action records.
type ModuleGrant struct {
	Entire     bool
	Submodules map[string]Actions
}

// MarshalJSON writes the wire shape: the sentinel is an empty object,
// otherwise a map of submodule slug to actions.
func (g ModuleGrant) MarshalJSON() ([]byte, error) {
	if g.Entire || len(g.Submodules) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(g.Submodules)
}

// UnmarshalJSON reads the wire shape; an empty object is the whole-module
// sentinel.
func (g *ModuleGrant) UnmarshalJSON(data []byte) error {
	var subs map[string]Actions
	if err := json.Unmarshal(data, &subs); err != nil {
		return err
	}
	if len(subs) == 0 {
		*g = ModuleGrant{Entire: true}
		return nil
	}
	*g = ModuleGrant{Submodules: subs}
	return nil
}

// PermissionSet maps slugified main-module names to grants. All overrides
// every other entry.
type PermissionSet struct {
	All     bool
	Modules map[string]ModuleGrant
}

// AllAccess is the unconditional permission set held by the super admin.
func AllAccess() PermissionSet { return PermissionSet{All: true} }

// MarshalJSON writes the wire shape: module keys at the top level plus the
// distinguished "all" key when set.
func (p PermissionSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Modules)+1)
	if p.All {
		out["all"] = json.RawMessage("true")
	}
	for name, grant := range p.Modules {
		raw, err := json.Marshal(grant)
		if err != nil {
			return nil, err
		}
		out[name] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the wire shape back.
func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := PermissionSet{}
	for key, payload := range raw {
		if key == "all" {
			var flag bool
			if err := json.Unmarshal(payload, &flag); err != nil {
				return err
			}
			result.All = flag
			continue
		}
		var grant ModuleGrant
		if err := json.Unmarshal(payload, &grant); err != nil {
			return err
		}
		if result.Modules == nil {
			result.Modules = make(map[string]ModuleGrant)
		}
		result.Modules[key] = grant
	}
	*p = result
	return nil
}

// Clone returns a deep copy of p.
func (p PermissionSet) Clone() PermissionSet {
	out := PermissionSet{All: p.All}
	if p.Modules != nil {
		out.Modules = make(map[string]ModuleGrant, len(p.Modules))
		for name, grant := range p.Modules {
			copied := ModuleGrant{Entire: grant.Entire}
			if grant.Submodules != nil {
				copied.Submodules = make(map[string]Actions, len(grant.Submodules))
				for sub, actions := range grant.Submodules {
					copied.Submodules[sub] = actions
				}
			}
			out.Modules[name] = copied
		}
	}
	return out
}

// Role groups a named permission set for assignment to users.
type Role struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Permissions PermissionSet `json:"permissions"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
