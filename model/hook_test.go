package model

import "testing"

func TestHookWants(t *testing.T) {
	h := Hook{Triggers: []Trigger{TriggerAdd, TriggerUpdate}}
	if !h.Wants(TriggerAdd) || !h.Wants(TriggerUpdate) {
		t.Error("expected configured triggers to be wanted")
	}
	if h.Wants(TriggerRemove) {
		t.Error("expected an unconfigured trigger not to be wanted")
	}
}

func TestHookWantsEmptyTriggers(t *testing.T) {
	h := Hook{}
	if h.Wants(TriggerAdd) {
		t.Error("expected a hook with no triggers to want nothing")
	}
}

func TestHookStateKey(t *testing.T) {
	h := Hook{Name: "restart", Path: "Resources.WebServer.Metadata"}
	if got, want := h.StateKey(), "restart|Resources.WebServer.Metadata"; got != want {
		t.Errorf("StateKey() = %q, want %q", got, want)
	}
}
