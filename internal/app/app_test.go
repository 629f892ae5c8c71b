package app

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vlab/internal/lab"
	"github.com/abhisek/vlab/internal/router"
	"github.com/abhisek/vlab/internal/screen"
	"github.com/abhisek/vlab/internal/ui/layout"
)

type stubScreen struct {
	title    string
	captures bool
	keys     []string
}

func (s *stubScreen) Init() tea.Cmd { return nil }
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		s.keys = append(s.keys, k.String())
	}
	return s, nil
}
func (s *stubScreen) View(int, int) string { return s.title + " body" }
func (s *stubScreen) Title() string        { return s.title }
func (s *stubScreen) CapturesEscape() bool { return s.captures }
func (s *stubScreen) Status() string       { return "t=42" }
func (s *stubScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Z", Description: "Zap"}}
}

func newTestModel(t *testing.T) AppModel {
	t.Helper()
	l := lab.New(lab.Options{TickPeriod: time.Hour})
	t.Cleanup(l.Close)
	return newAppModel(Options{Lab: l, SkipWelcome: true})
}

func TestEscPopsPushedScreen(t *testing.T) {
	m := newTestModel(t)
	m.router.Push(&stubScreen{title: "stub"})

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}

func TestEscReachesCapturingScreen(t *testing.T) {
	m := newTestModel(t)
	s := &stubScreen{title: "stub", captures: true}
	m.router.Push(s)

	m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if len(s.keys) != 1 || s.keys[0] != "esc" {
		t.Errorf("screen saw %v, want [esc]", s.keys)
	}
	if m.router.Depth() != 2 {
		t.Errorf("depth = %d, want 2", m.router.Depth())
	}
}

func TestViewUsesScreenHeaderAndHints(t *testing.T) {
	m := newTestModel(t)
	m.router.Push(&stubScreen{title: "stub"})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	frame := next.(AppModel).frame()
	for _, want := range []string{"vlab", "stub body", "t=42", "Zap"} {
		if !strings.Contains(frame, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewTooSmall(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if frame := next.(AppModel).frame(); !strings.Contains(frame, "Terminal too small") {
		t.Error("expected minimum size message")
	}
}

func TestHomeIsFirstScreen(t *testing.T) {
	m := newTestModel(t)
	if got := m.router.Active().Title(); got != "Home" {
		t.Errorf("first screen = %q, want Home", got)
	}
}
