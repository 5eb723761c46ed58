package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHandleEventPrefersView(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal("quit", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "global" }})
	r.AddView(ScopePane, "quote", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "view" }})

	if !r.HandleEvent(ScopePane, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Fatal("event not handled")
	}
	if got != "view" {
		t.Errorf("handler = %q, want view", got)
	}

	got = ""
	r.HandleEvent(ScopeList, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	if got != "global" {
		t.Errorf("handler = %q, want global", got)
	}
}

func TestTextScopesSwallowRunes(t *testing.T) {
	r := NewRegistry()
	fired := 0
	r.AddGlobal("quit", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { fired++ }})
	r.AddGlobal("focus", &Action{Key: tcell.KeyTab, Handler: func() { fired++ }})

	if r.HandleEvent(ScopeComposer, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("rune binding fired in composer")
	}
	if !r.HandleEvent(ScopeComposer, tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone)) {
		t.Error("tab binding did not fire in composer")
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestModifierMatch(t *testing.T) {
	a := &Action{Key: tcell.KeyEnter, Mod: tcell.ModAlt}
	if a.Matches(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)) {
		t.Error("plain Enter matched Alt+Enter")
	}
	if !a.Matches(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModAlt)) {
		t.Error("Alt+Enter did not match")
	}
}

func TestHintsOrderAndReplace(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal("quit", &Action{Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "quit", Visible: true})
	r.AddView(ScopeList, "new", &Action{Key: tcell.KeyRune, Rune: 'n', Label: "n", Description: "new", Visible: true})
	r.AddView(ScopeList, "search", &Action{Key: tcell.KeyRune, Rune: '/', Label: "/", Description: "search", Visible: true})
	r.AddView(ScopeList, "hidden", &Action{Key: tcell.KeyDown})
	r.AddView(ScopeList, "new", &Action{Key: tcell.KeyRune, Rune: 'n', Label: "n", Description: "new chat", Visible: true})

	got := r.Hints(ScopeList)
	want := []string{"new chat", "search", "quit"}
	if len(got) != len(want) {
		t.Fatalf("Hints() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Description != want[i] {
			t.Errorf("Hints()[%d] = %q, want %q", i, got[i].Description, want[i])
		}
	}
	if h := r.Hints(ScopeComposer); len(h) != 0 {
		t.Errorf("composer hints = %v, want none", h)
	}
}
