// Package ranker scores listings against the user profile by invoking an
// external AI CLI tool.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bethmaloney/job-applier/internal/model"
)

// Score is a successful ranking result.
type Score struct {
	Value       int
	Explanation string
}

// Invocation failure reasons.
const (
	ReasonTimeout      = "timeout"
	ReasonExit         = "nonzero-exit"
	ReasonUnparseable  = "unparseable-output"
	ReasonStartFailure = "start-failure"
)

// InvocationError describes a failed ranking invocation. Callers treat it as
// a soft per-item error.
type InvocationError struct {
	Reason string
	Err    error
}

func (e *InvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ranking invocation failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ranking invocation failed (%s)", e.Reason)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Invoker is the ranking capability consumed by the rank job.
type Invoker interface {
	Invoke(ctx context.Context, listing model.ListingRecord, profile model.UserProfile) (Score, error)
}

// CLI invokes a headless AI CLI (claude-style: prompt on stdin, text on
// stdout) with a bounded timeout per listing.
type CLI struct {
	Path    string
	Model   string
	Timeout time.Duration
}

// NewCLI returns a CLI invoker.
func NewCLI(path, model string, timeout time.Duration) *CLI {
	return &CLI{Path: path, Model: model, Timeout: timeout}
}

// Invoke runs one ranking call. Timeouts, nonzero exits and unparseable
// responses all surface as *InvocationError.
func (c *CLI) Invoke(ctx context.Context, listing model.ListingRecord, profile model.UserProfile) (Score, error) {
	tctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, c.Path, "-p", "--model", c.Model)
	cmd.Stdin = strings.NewReader(buildPrompt(listing, profile))

	out, err := cmd.Output()
	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return Score{}, &InvocationError{Reason: ReasonTimeout, Err: tctx.Err()}
	}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return Score{}, &InvocationError{
			Reason: ReasonExit,
			Err:    fmt.Errorf("exit code %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr))),
		}
	case err != nil:
		return Score{}, &InvocationError{Reason: ReasonStartFailure, Err: err}
	}

	score, err := ParseScore(string(out))
	if err != nil {
		return Score{}, &InvocationError{Reason: ReasonUnparseable, Err: err}
	}
	return score, nil
}

// Fenced or bare JSON objects carrying a "score" field, anywhere in the
// response text.
var scoreJSONRes = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile(`(\{[^{}]*"score"[^{}]*\})`),
}

// ParseScore extracts {"score": n, "explanation": ...} from a model response.
// The model may wrap the JSON in markdown fences or prose, so parsing is
// deliberately lenient. The score is rounded and clamped to 1..10.
func ParseScore(response string) (Score, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return Score{}, errors.New("empty response")
	}

	candidates := []string{response}
	for _, re := range scoreJSONRes {
		if m := re.FindStringSubmatch(response); m != nil {
			candidates = append(candidates, m[1])
		}
	}

	for _, candidate := range candidates {
		if !gjson.Valid(candidate) {
			continue
		}
		parsed := gjson.Parse(candidate)
		scoreVal := parsed.Get("score")
		if !scoreVal.Exists() || scoreVal.Type != gjson.Number {
			continue
		}
		value := int(math.Round(scoreVal.Float()))
		if value < 1 {
			value = 1
		}
		if value > 10 {
			value = 10
		}
		return Score{Value: value, Explanation: parsed.Get("explanation").String()}, nil
	}

	return Score{}, fmt.Errorf("no score JSON in response: %.120s", response)
}

// buildPrompt assembles the ranking prompt from the profile and listing.
func buildPrompt(listing model.ListingRecord, profile model.UserProfile) string {
	var b strings.Builder
	b.WriteString("You are a job relevance ranker. Score this job listing against the candidate's profile.\n\n")

	b.WriteString("## Candidate Profile\n")
	writeField(&b, "Location", profile.Location, "Not specified")
	writeField(&b, "Skills", profile.Skills, "Not specified")
	writeField(&b, "Target titles", profile.TargetTitles, "Not specified")
	writeField(&b, "Preferences", profile.Preferences, "Not specified")
	minSalary := ""
	if profile.MinSalary != nil {
		minSalary = fmt.Sprintf("%d", *profile.MinSalary)
	}
	writeField(&b, "Min salary", minSalary, "Not specified")
	writeField(&b, "Resume/Experience", profile.ResumeText, "Not provided")

	b.WriteString("\n## Job Listing\n")
	writeField(&b, "Title", listing.Title, "Unknown")
	writeField(&b, "Company", listing.Company, "Unknown")
	writeField(&b, "Location", listing.Location, "Unknown")
	writeField(&b, "Salary", listing.Salary, "Not listed")
	writeField(&b, "Description", listing.Description, "No description available")

	b.WriteString(`
## Instructions
Rate relevance from 1-10 where:
- 1-3: Poor match (wrong field, wrong level, bad location)
- 4-5: Weak match (some overlap but missing key requirements)
- 6-7: Decent match (good overlap, worth reviewing)
- 8-9: Strong match (closely aligned with profile)
- 10: Perfect match

Respond with ONLY valid JSON, no other text:
{"score": <number 1-10>, "explanation": "<one sentence>"}
`)
	return b.String()
}

func writeField(b *strings.Builder, name, value, fallback string) {
	if value == "" {
		value = fallback
	}
	fmt.Fprintf(b, "- **%s**: %s\n", name, value)
}
