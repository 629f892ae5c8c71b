package challenge

import (
	"strings"
	"testing"
)

func TestDefaultBank(t *testing.T) {
	b := DefaultBank()
	wantPoints := map[Difficulty][2]int{
		Beginner:     {10, 5},
		Intermediate: {15, 10},
		Advanced:     {25, 15},
	}
	wantLimits := map[Difficulty]int{Beginner: 120, Intermediate: 90, Advanced: 60}

	for _, d := range AllDifficulties() {
		qs, ok := b.Pool(d)
		if !ok || len(qs) < 5 {
			t.Fatalf("%s pool has %d questions", d, len(qs))
		}
		for _, q := range qs {
			if q.BasePoints != wantPoints[d][0] || q.SpeedBonusPoints != wantPoints[d][1] {
				t.Errorf("%s/%s points = %d+%d, want %v", d, q.ID, q.BasePoints, q.SpeedBonusPoints, wantPoints[d])
			}
		}
		if got := b.TimeLimit(d); got != wantLimits[d] {
			t.Errorf("%s time limit = %d, want %d", d, got, wantLimits[d])
		}
	}
}

func TestLoadBank_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown difficulty", "expert:\n  questions: []\n", "unknown difficulty"},
		{"three options", `
beginner:
  questions:
    - id: x
      prompt: p
      options: [a, b, c]
      correct: 0
`, "want 4 options"},
		{"correct out of range", `
beginner:
  questions:
    - id: x
      prompt: p
      options: [a, b, c, d]
      correct: 4
`, "out of range"},
		{"duplicate id", `
beginner:
  questions:
    - {id: x, prompt: p, options: [a, b, c, d], correct: 0}
    - {id: x, prompt: q, options: [a, b, c, d], correct: 1}
`, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBank([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadBank error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadBank_QuestionOverridesPoolPoints(t *testing.T) {
	b, err := LoadBank([]byte(`
advanced:
  base_points: 25
  speed_bonus_points: 15
  questions:
    - {id: x, prompt: p, options: [a, b, c, d], correct: 0, base_points: 30}
`))
	if err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	qs, _ := b.Pool(Advanced)
	if qs[0].BasePoints != 30 || qs[0].SpeedBonusPoints != 15 {
		t.Errorf("points = %d+%d, want 30+15", qs[0].BasePoints, qs[0].SpeedBonusPoints)
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(" Advanced "); err != nil || d != Advanced {
		t.Errorf("ParseDifficulty = %q, %v", d, err)
	}
	if _, err := ParseDifficulty("expert"); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}
