// Package evaluate replays a golden set of questions through gated
// retrieval and scores citation accuracy. No generation is involved:
// a case passes on retrieval evidence alone.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/papercomputeco/strata/pkg/retrieval"
)

// Case is one golden question.
type Case struct {
	ID       string `json:"id"`
	Question string `json:"question"`

	// MustCite lists document ids, any one of which must appear among
	// the accepted chunks' documents for the case to pass. An empty
	// list means the gate is expected to reject the question.
	MustCite []string `json:"must_cite"`
}

// Result is one case's outcome.
type Result struct {
	Case   Case
	Passed bool

	// State is the gate's terminal state for the question.
	State retrieval.State

	// Cited are the distinct document ids among accepted chunks, in
	// forwarding order.
	Cited []string
}

// Report aggregates a full run.
type Report struct {
	Results []Result
	Passed  int
	Failed  int
}

// PassRate is the fraction of cases that passed, 0 for an empty run.
func (r *Report) PassRate() float64 {
	total := r.Passed + r.Failed
	if total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(total)
}

// Runner replays golden cases against a retriever.
type Runner struct {
	retriever *retrieval.Retriever
	logger    *slog.Logger
}

// NewRunner creates an evaluation runner.
func NewRunner(retriever *retrieval.Retriever, logger *slog.Logger) (*Runner, error) {
	if retriever == nil {
		return nil, fmt.Errorf("runner requires a retriever")
	}
	return &Runner{
		retriever: retriever,
		logger:    logger,
	}, nil
}

// LoadCases reads a golden JSON file: an array of {id, question,
// must_cite} objects.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading golden file: %w", err)
	}

	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parsing golden file %q: %w", path, err)
	}

	for i, c := range cases {
		if c.ID == "" {
			return nil, fmt.Errorf("case %d: id is required", i)
		}
		if c.Question == "" {
			return nil, fmt.Errorf("case %q: question is required", c.ID)
		}
	}
	return cases, nil
}

// Run replays every case in order. Retrieval errors abort the run;
// rejections are outcomes, not errors.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	report := &Report{}

	for _, c := range cases {
		outcome, err := r.retriever.Query(ctx, c.Question)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", c.ID, err)
		}

		result := Result{
			Case:  c,
			State: outcome.State,
			Cited: citedDocuments(outcome),
		}
		result.Passed = passed(c, result)

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)

		r.logger.Debug("evaluated case",
			"case", c.ID,
			"state", result.State,
			"cited", result.Cited,
			"passed", result.Passed,
		)
	}

	return report, nil
}

// passed scores one case: any must-cite hit passes, and cases with no
// must-cite documents pass only when the gate rejected.
func passed(c Case, result Result) bool {
	if len(c.MustCite) == 0 {
		return result.State == retrieval.StateRejected
	}
	for _, want := range c.MustCite {
		for _, got := range result.Cited {
			if want == got {
				return true
			}
		}
	}
	return false
}

// citedDocuments returns distinct document ids in forwarding order.
func citedDocuments(outcome *retrieval.Outcome) []string {
	seen := make(map[string]bool, len(outcome.Contexts))
	var docs []string
	for _, c := range outcome.Contexts {
		if seen[c.DocumentID] {
			continue
		}
		seen[c.DocumentID] = true
		docs = append(docs, c.DocumentID)
	}
	return docs
}
