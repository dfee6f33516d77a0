package role

import (
	"encoding/json"
	"testing"
)

func TestModuleGrantSentinel(t *testing.T) {
	var grant ModuleGrant
	if err := json.Unmarshal([]byte(`{}`), &grant); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !grant.Entire {
		t.Fatalf("empty object must decode as the whole-module sentinel")
	}

	data, err := json.Marshal(ModuleGrant{Entire: true})
	if err != nil || string(data) != "{}" {
		t.Fatalf("sentinel must encode as an empty object, got %s %v", data, err)
	}
}

func TestPermissionSetWireShape(t *testing.T) {
	raw := []byte(`{"all":true,"procurement":{"purchase-order":{"read":true,"write":true}}}`)

	var perms PermissionSet
	if err := json.Unmarshal(raw, &perms); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !perms.All {
		t.Fatalf("all flag lost")
	}
	actions := perms.Modules["procurement"].Submodules["purchase-order"]
	if !actions.Read || !actions.Write || actions.Delete {
		t.Fatalf("unexpected actions: %+v", actions)
	}

	// Round trip keeps the same semantic content.
	data, err := json.Marshal(perms)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back PermissionSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if !back.All || !back.Modules["procurement"].Submodules["purchase-order"].Write {
		t.Fatalf("round trip lost content: %+v", back)
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := PermissionSet{Modules: map[string]ModuleGrant{
		"sales": {Submodules: map[string]Actions{"invoice": {Read: true}}},
	}}
	copied := original.Clone()
	copied.Modules["sales"].Submodules["invoice"] = Actions{}

	if !original.Modules["sales"].Submodules["invoice"].Read {
		t.Fatalf("clone shares submodule map with original")
	}
}
