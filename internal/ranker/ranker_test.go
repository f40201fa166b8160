package ranker_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bethmaloney/job-applier/internal/ranker"
)

func TestParseScore_PlainJSON(t *testing.T) {
	score, err := ranker.ParseScore(`{"score": 7, "explanation": "decent overlap"}`)
	if err != nil {
		t.Fatalf("ParseScore: %v", err)
	}
	if score.Value != 7 {
		t.Errorf("value = %d, want 7", score.Value)
	}
	if score.Explanation != "decent overlap" {
		t.Errorf("explanation = %q", score.Explanation)
	}
}

// Model responses often wrap the JSON in markdown fences or prose; all of
// these must parse.
func TestParseScore_LenientFormats(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     int
	}{
		{
			"json fence",
			"```json\n{\"score\": 8, \"explanation\": \"strong\"}\n```",
			8,
		},
		{
			"bare fence",
			"```\n{\"score\": 4, \"explanation\": \"weak\"}\n```",
			4,
		},
		{
			"leading prose",
			"Here is my assessment:\n\n{\"score\": 6, \"explanation\": \"decent\"}",
			6,
		},
		{
			"fractional score rounds",
			`{"score": 6.6, "explanation": "decent"}`,
			7,
		},
		{
			"surrounding whitespace",
			"  \n {\"score\": 9, \"explanation\": \"great\"} \n ",
			9,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, err := ranker.ParseScore(tc.response)
			if err != nil {
				t.Fatalf("ParseScore(%q): %v", tc.response, err)
			}
			if score.Value != tc.want {
				t.Errorf("value = %d, want %d", score.Value, tc.want)
			}
		})
	}
}

func TestParseScore_ClampsToRange(t *testing.T) {
	cases := []struct {
		response string
		want     int
	}{
		{`{"score": 0, "explanation": "x"}`, 1},
		{`{"score": -3, "explanation": "x"}`, 1},
		{`{"score": 11, "explanation": "x"}`, 10},
		{`{"score": 100, "explanation": "x"}`, 10},
	}
	for _, tc := range cases {
		score, err := ranker.ParseScore(tc.response)
		if err != nil {
			t.Fatalf("ParseScore(%q): %v", tc.response, err)
		}
		if score.Value != tc.want {
			t.Errorf("ParseScore(%q) = %d, want clamped %d", tc.response, score.Value, tc.want)
		}
	}
}

func TestParseScore_Unparseable(t *testing.T) {
	bad := []string{
		"",
		"I cannot rank this listing.",
		`{"explanation": "no score field"}`,
		`{"score": "seven"}`,
		"```json\nnot json\n```",
	}
	for _, response := range bad {
		if _, err := ranker.ParseScore(response); err == nil {
			t.Errorf("ParseScore(%q) should fail", response)
		}
	}
}

func TestInvocationError_Message(t *testing.T) {
	wrapped := errors.New("signal: killed")
	err := &ranker.InvocationError{Reason: ranker.ReasonTimeout, Err: wrapped}
	if !strings.Contains(err.Error(), ranker.ReasonTimeout) {
		t.Errorf("error %q should carry the reason", err.Error())
	}
	if !errors.Is(err, wrapped) {
		t.Error("InvocationError must unwrap to the underlying error")
	}

	bare := &ranker.InvocationError{Reason: ranker.ReasonUnparseable}
	if !strings.Contains(bare.Error(), ranker.ReasonUnparseable) {
		t.Errorf("error %q should carry the reason", bare.Error())
	}
}
