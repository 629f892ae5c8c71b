package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
)

func key(s string) tea.KeyPressMsg {
	switch s {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	}
	return tea.KeyPressMsg{Code: rune(s[0]), Text: s}
}

func TestMultiChoice_ArrowsAndEnter(t *testing.T) {
	m := NewMultiChoice("Which way does water move?", []string{"in", "out", "none", "both"}, 1)
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("up"))
	m, _ = m.Update(key("enter"))

	if !m.Submitted || m.ChosenIndex != 1 {
		t.Fatalf("submitted=%v chosen=%d, want true 1", m.Submitted, m.ChosenIndex)
	}
	if !m.IsCorrect() {
		t.Error("expected correct answer")
	}

	// Input after submit is ignored.
	m, _ = m.Update(key("down"))
	if m.Selected != 1 {
		t.Errorf("selection moved after submit: %d", m.Selected)
	}
}

func TestMultiChoice_LetterKeys(t *testing.T) {
	m := NewMultiChoice("q", []string{"a", "b", "c", "d"}, 0)
	m, _ = m.Update(key("c"))
	if !m.Submitted || m.ChosenIndex != 2 {
		t.Fatalf("chosen=%d, want 2", m.ChosenIndex)
	}
	if m.IsCorrect() {
		t.Error("expected wrong answer")
	}
}

func TestMenu_WrapsAndSkipsDisabled(t *testing.T) {
	picked := ""
	item := func(label string, disabled bool) MenuItem {
		return MenuItem{Label: label, Disabled: disabled, Action: func() tea.Cmd {
			picked = label
			return nil
		}}
	}
	m := NewMenu([]MenuItem{item("one", false), item("two", true), item("three", false)})

	m, _ = m.Update(key("down"))
	if m.Selected != 2 {
		t.Fatalf("Selected = %d, want 2", m.Selected)
	}
	m, _ = m.Update(key("down"))
	if m.Selected != 0 {
		t.Fatalf("Selected = %d after wrap, want 0", m.Selected)
	}

	m, _ = m.Update(key("3"))
	if picked != "three" {
		t.Errorf("picked = %q, want three", picked)
	}
	m.Update(key("2"))
	if picked != "three" {
		t.Errorf("disabled item was activated")
	}
}

func TestProgressBar_Clamps(t *testing.T) {
	full := NewProgressBar("", 1.5, true, 20).View()
	if !strings.Contains(full, "100%") {
		t.Errorf("expected 100%% in %q", full)
	}
	empty := NewProgressBar("", -1, true, 20).View()
	if !strings.Contains(empty, "  0%") {
		t.Errorf("expected 0%% in %q", empty)
	}
}

func TestCell_Caption(t *testing.T) {
	tests := []struct {
		flow float64
		want string
	}{
		{0.4, "water in"},
		{-0.4, "water out"},
		{0, "balanced"},
	}
	for _, tt := range tests {
		c := Cell{Archetype: osmosis.ArchetypeBlood, Size: 1, Flow: tt.flow, Phase: phase.NormalBiconcave}
		if v := c.View(); !strings.Contains(v, tt.want) {
			t.Errorf("flow %.1f: view missing %q", tt.flow, tt.want)
		}
	}
}
