package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		score       *float64
		exploited   bool
		probability *float64
		want        Priority
	}{
		{name: "exploited critical with high probability", score: f(10.0), exploited: true, probability: f(0.97), want: P0},
		{name: "critical score alone", score: f(9.0), want: P0},
		{name: "high probability alone", probability: f(0.9), want: P0},
		{name: "exploited high score", score: f(7.0), exploited: true, want: P0},
		{name: "exploited below high band stays out of P0", score: f(6.9), exploited: true, want: P3},
		{name: "exploited medium score with probability", score: f(6.9), exploited: true, probability: f(0.1), want: P2},
		{name: "high score with medium probability", score: f(7.5), probability: f(0.5), want: P1},
		{name: "high score exploited already claimed by P0", score: f(8.9), probability: f(0.5), want: P1},
		{name: "high score low probability", score: f(7.5), probability: f(0.3), want: P2},
		{name: "high score no signals", score: f(7.0), want: P2},
		{name: "medium score with some probability", score: f(4.0), probability: f(0.1), want: P2},
		{name: "medium score quiet", score: f(5.5), probability: f(0.05), want: P3},
		{name: "medium score no probability", score: f(4.0), want: P3},
		{name: "low score", score: f(3.0), probability: f(0.05), want: P4},
		{name: "no score at all", want: P4},
		{name: "no score but exploited", exploited: true, want: P4},
		{name: "no score high probability", probability: f(0.95), want: P0},
		{name: "nil probability is not a zero score", score: f(7.5), want: P2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.score, tt.exploited, tt.probability)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Raising the score, everything else fixed, must never yield a less
// urgent tier.
func TestClassifyScoreMonotonic(t *testing.T) {
	for _, exploited := range []bool{false, true} {
		for _, prob := range []*float64{nil, f(0.05), f(0.3), f(0.6), f(0.95)} {
			prev := P4
			for s := 0.0; s <= 10.0; s += 0.1 {
				s := s
				got := Classify(&s, exploited, prob)
				assert.LessOrEqual(t, got, prev, "score %.1f exploited %v", s, exploited)
				prev = got
			}
		}
	}
}

func TestPriorityJSON(t *testing.T) {
	data, err := P1.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"P1"`, string(data))

	var p Priority
	assert.NoError(t, p.UnmarshalJSON([]byte(`"P3"`)))
	assert.Equal(t, P3, p)
}
