// Package retrieval runs similarity search over the vector index and
// gates the results by confidence before anything downstream sees them.
//
// The gate is the last line of defense against ungrounded generation:
// a query whose evidence is too weak terminates in a rejection carrying
// a fixed reason, never in a thin set of low-scoring chunks.
package retrieval

import (
	"sort"
	"time"
)

// RejectionReason is the only signal a rejected query emits. No chunks
// accompany it.
const RejectionReason = "insufficient information"

// State is a gate evaluation state.
type State string

const (
	// StateEvaluating is the transient state while policy runs.
	StateEvaluating State = "evaluating"

	// StateAccepted is terminal: contexts are forwarded.
	StateAccepted State = "accepted"

	// StateRejected is terminal: nothing is forwarded.
	StateRejected State = "rejected"
)

// Default policy knobs. All of them are configuration, not contracts.
const (
	DefaultTopK        = 8
	DefaultMinScore    = float32(0.35)
	DefaultScoreWindow = float32(0.08)
	DefaultMaxContexts = 4
	DefaultMinMatches  = 1

	// DefaultOpTimeout bounds each embedder or index call on the
	// query path.
	DefaultOpTimeout = 30 * time.Second

	// defaultFloorMargin sets FloorScore below MinScore when the
	// policy leaves it zero.
	defaultFloorMargin = float32(0.05)
)

// Policy holds the confidence gate's tuning knobs.
type Policy struct {
	// TopK is how many matches to request from the index.
	TopK int

	// MinScore is the threshold the best match must clear.
	MinScore float32

	// FloorScore is the secondary floor supporting matches must clear.
	// Defaults to MinScore minus a small margin.
	FloorScore float32

	// MinMatches is how many matches must clear FloorScore.
	MinMatches int

	// ScoreWindow keeps only matches scoring within this distance of
	// the best match.
	ScoreWindow float32

	// MaxContexts caps how many chunks an accepted query forwards.
	MaxContexts int

	// OpTimeout bounds each embedder or index call. A hung backend
	// surfaces as a deadline error instead of blocking the query.
	OpTimeout time.Duration
}

// withDefaults fills zero knobs with defaults.
func (p Policy) withDefaults() Policy {
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	if p.MinScore <= 0 {
		p.MinScore = DefaultMinScore
	}
	if p.FloorScore <= 0 {
		p.FloorScore = p.MinScore - defaultFloorMargin
	}
	if p.MinMatches <= 0 {
		p.MinMatches = DefaultMinMatches
	}
	if p.ScoreWindow <= 0 {
		p.ScoreWindow = DefaultScoreWindow
	}
	if p.MaxContexts <= 0 {
		p.MaxContexts = DefaultMaxContexts
	}
	if p.OpTimeout <= 0 {
		p.OpTimeout = DefaultOpTimeout
	}
	return p
}

// Context is one accepted chunk with its provenance and score.
type Context struct {
	ChunkID     string
	DocumentID  string
	Version     int64
	Position    int
	StartOffset int
	EndOffset   int
	Text        string
	Score       float32
}

// Outcome is the terminal result of gating one query.
type Outcome struct {
	State State

	// Reason is RejectionReason when State is StateRejected, empty
	// otherwise.
	Reason string

	// Contexts are the forwarded chunks, best first. Empty unless
	// State is StateAccepted.
	Contexts []Context
}

// Accepted reports whether the outcome forwards contexts.
func (o *Outcome) Accepted() bool {
	return o.State == StateAccepted
}

// Gate applies a confidence policy to scored candidates.
type Gate struct {
	policy Policy
}

// NewGate creates a gate with the given policy, filling in defaults.
func NewGate(policy Policy) *Gate {
	return &Gate{policy: policy.withDefaults()}
}

// Policy returns the effective policy after defaults.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Evaluate runs the policy over candidates and lands in a terminal
// state. Candidates may arrive in any order; evaluation sorts them by
// score, best first.
func (g *Gate) Evaluate(candidates []Context) *Outcome {
	out := &Outcome{State: StateEvaluating}

	if len(candidates) == 0 {
		return out.reject()
	}

	sorted := make([]Context, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	best := sorted[0]
	if best.Score < g.policy.MinScore {
		return out.reject()
	}

	cleared := 0
	for _, c := range sorted {
		if c.Score >= g.policy.FloorScore {
			cleared++
		}
	}
	if cleared < g.policy.MinMatches {
		return out.reject()
	}

	var contexts []Context
	for _, c := range sorted {
		if c.Score < best.Score-g.policy.ScoreWindow || c.Score < g.policy.FloorScore {
			continue
		}
		contexts = append(contexts, c)
		if len(contexts) == g.policy.MaxContexts {
			break
		}
	}

	return out.accept(contexts)
}

func (o *Outcome) reject() *Outcome {
	o.State = StateRejected
	o.Reason = RejectionReason
	o.Contexts = nil
	return o
}

func (o *Outcome) accept(contexts []Context) *Outcome {
	o.State = StateAccepted
	o.Contexts = contexts
	return o
}
