// Package challenge is the quiz screen: difficulty pick, timed questions
// with feedback, and a hand-off to the results screen.
package challenge

import (
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	ch "github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/lab"
	"github.com/abhisek/vlab/internal/router"
	"github.com/abhisek/vlab/internal/screen"
	"github.com/abhisek/vlab/internal/screens/summary"
	"github.com/abhisek/vlab/internal/ui/components"
	"github.com/abhisek/vlab/internal/ui/layout"
)

// RefreshInterval is how often the screen polls the lab.
const RefreshInterval = 100 * time.Millisecond

type refreshMsg time.Time

// ChallengeScreen implements screen.Screen for one challenge run.
type ChallengeScreen struct {
	lab *lab.Lab

	picker  components.Menu
	infos   []lab.ChallengeInfo
	session *ch.Session
	version uint64

	mc      components.MultiChoice
	mcIndex int
	done    bool
}

var _ screen.Screen = (*ChallengeScreen)(nil)
var _ screen.KeyHintProvider = (*ChallengeScreen)(nil)
var _ screen.StatusProvider = (*ChallengeScreen)(nil)
var _ screen.EscapeCapturer = (*ChallengeScreen)(nil)

// New creates a challenge screen showing the difficulty picker.
func New(l *lab.Lab) *ChallengeScreen {
	c := &ChallengeScreen{lab: l, mcIndex: -1}
	c.infos = l.Challenges()

	items := make([]components.MenuItem, 0, len(c.infos))
	for _, info := range c.infos {
		d := info.Difficulty
		items = append(items, components.MenuItem{
			Label: d.DisplayName(),
			Hint:  fmt.Sprintf("%d questions, %ds on the clock", info.Questions, info.TimeLimitSeconds),
			Action: func() tea.Cmd {
				c.start(d)
				return tick()
			},
		})
	}
	c.picker = components.NewMenu(items)
	return c
}

func (c *ChallengeScreen) Init() tea.Cmd {
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (c *ChallengeScreen) Title() string {
	if c.session != nil {
		return c.session.Difficulty.DisplayName() + " Challenge"
	}
	return "Challenge"
}

func (c *ChallengeScreen) Status() string {
	s := c.session
	if s == nil {
		return ""
	}
	return fmt.Sprintf("★ %d   ⚡ %d   ⏱ %s", s.Score, s.Streak, clockText(s.TimeLeftSeconds))
}

// CapturesEscape is always true: leaving mid-run abandons the challenge.
func (c *ChallengeScreen) CapturesEscape() bool {
	return true
}

func (c *ChallengeScreen) KeyHints() []layout.KeyHint {
	switch {
	case c.session == nil:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Difficulty"},
			{Key: "Enter", Description: "Start"},
			{Key: "Esc", Description: "Back"},
		}
	case c.session.AwaitingNext:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next question"},
			{Key: "Esc", Description: "Quit"},
		}
	default:
		return []layout.KeyHint{
			{Key: "A-D", Description: "Answer"},
			{Key: "↑↓ Enter", Description: "Select"},
			{Key: "Esc", Description: "Quit"},
		}
	}
}

func (c *ChallengeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		if c.session == nil || c.done {
			return c, nil
		}
		c.sync(c.lab.Snapshot())
		if c.done {
			return c, c.finish()
		}
		return c, tick()

	case tea.KeyMsg:
		return c.handleKey(msg)
	}
	return c, nil
}

func (c *ChallengeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if msg.String() == "esc" {
		if c.session != nil && !c.done {
			c.apply(lab.Intent{Type: lab.IntentResetChallenge})
		}
		return c, func() tea.Msg { return router.PopScreenMsg{} }
	}

	if c.session == nil {
		var cmd tea.Cmd
		c.picker, cmd = c.picker.Update(msg)
		return c, cmd
	}
	if c.done {
		return c, nil
	}

	if c.session.AwaitingNext {
		if msg.String() == "enter" || msg.String() == "space" {
			c.apply(lab.Intent{Type: lab.IntentNextQuestion})
		}
		return c, c.finishIfDone()
	}

	c.mc, _ = c.mc.Update(msg)
	if c.mc.Submitted {
		option := c.mc.ChosenIndex
		c.apply(lab.Intent{Type: lab.IntentAnswerChallenge, Option: &option})
	}
	return c, c.finishIfDone()
}

func (c *ChallengeScreen) start(d ch.Difficulty) {
	snap, err := c.lab.Apply(lab.Intent{Type: lab.IntentStartChallenge, Difficulty: string(d)})
	if err != nil || snap.Challenge == nil {
		return
	}
	c.session = snap.Challenge
	c.version = snap.Version
	c.syncQuestion()
}

func (c *ChallengeScreen) apply(in lab.Intent) {
	snap, err := c.lab.Apply(in)
	if err != nil {
		return
	}
	c.sync(snap)
}

// sync adopts snap when it still belongs to this screen's session.
func (c *ChallengeScreen) sync(snap lab.Snapshot) {
	if c.session == nil || snap.Version < c.version {
		return
	}
	c.version = snap.Version
	if snap.Challenge == nil || snap.Challenge.ID != c.session.ID {
		// Replaced or reset elsewhere.
		c.done = true
		return
	}
	c.session = snap.Challenge
	c.done = c.session.Completed
	c.syncQuestion()
}

// syncQuestion rebuilds the selector when the question changes and reveals
// the answer while feedback is showing.
func (c *ChallengeScreen) syncQuestion() {
	s := c.session
	q, ok := s.Current()
	if !ok {
		return
	}
	if c.mcIndex != s.CurrentIndex {
		c.mc = components.NewMultiChoice(q.Prompt, q.Options, q.CorrectOption)
		c.mcIndex = s.CurrentIndex
	}
	if s.AwaitingNext && s.LastResult != nil {
		c.mc.Reveal(s.LastResult.Selected)
	}
}

func (c *ChallengeScreen) finishIfDone() tea.Cmd {
	if !c.done {
		return nil
	}
	return c.finish()
}

func (c *ChallengeScreen) finish() tea.Cmd {
	s := c.session
	if s == nil || !s.Completed {
		return func() tea.Msg { return router.PopScreenMsg{} }
	}
	l := c.lab
	results := summary.New(s, func() screen.Screen { return New(l) })
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: results} }
}

func clockText(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
