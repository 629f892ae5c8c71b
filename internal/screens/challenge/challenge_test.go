package challenge

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	ch "github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/lab"
	"github.com/abhisek/vlab/internal/router"
)

// newTestScreen uses a long feedback delay and tick period so the test
// drives every transition itself.
func newTestScreen(t *testing.T) (*ChallengeScreen, *lab.Lab) {
	t.Helper()
	rules := ch.DefaultRules()
	rules.FeedbackDelay = time.Hour
	l := lab.New(lab.Options{Rules: &rules, TickPeriod: time.Hour})
	t.Cleanup(l.Close)
	return New(l), l
}

func key(k string) tea.KeyPressMsg {
	switch k {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	}
	return tea.KeyPressMsg{Code: rune(k[0]), Text: k}
}

func TestChallengeScreen_PickerStartsChallenge(t *testing.T) {
	c, l := newTestScreen(t)
	if !strings.Contains(c.View(100, 30), "Beginner") {
		t.Fatal("picker does not list Beginner")
	}

	c.Update(key("down"))
	_, cmd := c.Update(key("enter"))
	if cmd == nil {
		t.Fatal("expected refresh tick after start")
	}

	snap := l.Snapshot()
	if snap.Challenge == nil || snap.Challenge.Difficulty != ch.Intermediate {
		t.Fatalf("challenge = %+v, want intermediate", snap.Challenge)
	}
	if c.session == nil || c.session.ID != snap.Challenge.ID {
		t.Fatal("screen did not adopt the started session")
	}
	if !strings.Contains(c.Status(), "1:30") {
		t.Errorf("Status = %q, want 1:30 on the clock", c.Status())
	}
}

func TestChallengeScreen_AnswerShowsFeedbackThenNext(t *testing.T) {
	c, l := newTestScreen(t)
	c.Update(key("enter")) // beginner

	q, _ := c.session.Current()
	correct := string(rune('a' + q.CorrectOption))
	c.Update(key(correct))

	s := l.Snapshot().Challenge
	if !s.AwaitingNext || s.LastResult == nil || !s.LastResult.Correct {
		t.Fatalf("after answer: %+v", s)
	}
	if !strings.Contains(c.View(100, 30), "Correct!") {
		t.Error("feedback not rendered")
	}

	c.Update(key("enter"))
	s = l.Snapshot().Challenge
	if s.AwaitingNext || s.CurrentIndex != 1 {
		t.Fatalf("after next: awaiting=%v index=%d", s.AwaitingNext, s.CurrentIndex)
	}
	if c.mcIndex != 1 || c.mc.Submitted {
		t.Error("selector not rebuilt for the next question")
	}
}

func TestChallengeScreen_CompletionShowsResults(t *testing.T) {
	c, _ := newTestScreen(t)
	c.Update(key("enter"))

	var cmd tea.Cmd
	for i := 0; i < len(c.session.Questions); i++ {
		c.Update(key("a"))
		_, cmd = c.Update(key("enter"))
	}
	if !c.done {
		t.Fatal("expected done after the last question")
	}
	if cmd == nil {
		t.Fatal("expected a command after completion")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("got %T, want ReplaceScreenMsg", cmd())
	}
	if msg.Screen.Title() != "Challenge Results" {
		t.Errorf("replacement = %q", msg.Screen.Title())
	}
}

func TestChallengeScreen_EscAbandons(t *testing.T) {
	c, l := newTestScreen(t)
	c.Update(key("enter"))

	_, cmd := c.Update(key("esc"))
	if cmd == nil {
		t.Fatal("expected pop on Esc")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
	if l.Snapshot().Challenge != nil {
		t.Error("challenge not reset after Esc")
	}
}

func TestChallengeScreen_ReplacedElsewhere(t *testing.T) {
	c, l := newTestScreen(t)
	c.Update(key("enter"))

	if _, err := l.Apply(lab.Intent{Type: lab.IntentStartChallenge, Difficulty: "advanced"}); err != nil {
		t.Fatal(err)
	}
	_, cmd := c.Update(refreshMsg(time.Now()))
	if !c.done {
		t.Fatal("screen still bound to a detached session")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg for a replaced session")
	}
}
