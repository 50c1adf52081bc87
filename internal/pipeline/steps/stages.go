// Package steps defines the stages of a briefing run and how their outcomes are recorded.
package steps

import (
	"fmt"
	"strings"
	"time"
)

// Stage names
const (
	StageSeedCrawl = "seed_crawl"
	StageExpansion = "expansion"
	StageSynthesis = "synthesis"
	StagePersist   = "persist"
)

// Stage categories
const (
	CategoryCollection = "collection"
	CategoryGeneration = "generation"
	CategoryStorage    = "storage"
)

// StageDefinition defines metadata for a run stage
type StageDefinition struct {
	Name     string
	Category string
	// Fatal stages end the run when they fail. Non-fatal stages are recorded and skipped.
	Fatal bool
}

// StageRegistry holds all stage definitions
var StageRegistry = map[string]StageDefinition{
	StageSeedCrawl: {Name: StageSeedCrawl, Category: CategoryCollection},
	StageExpansion: {Name: StageExpansion, Category: CategoryCollection},
	StageSynthesis: {Name: StageSynthesis, Category: CategoryGeneration, Fatal: true},
	StagePersist:   {Name: StagePersist, Category: CategoryStorage, Fatal: true},
}

// Outcome is the result class of a stage.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
)

// StageResult represents the result of executing a stage
type StageResult struct {
	Stage     string        `json:"stage"`
	Cycle     int           `json:"cycle,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Attempted int           `json:"attempted"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// OutcomeFor classifies a batch of attempts.
// Nothing attempted counts as success.
func OutcomeFor(attempted, failed int) Outcome {
	switch {
	case failed == 0:
		return OutcomeSucceeded
	case failed >= attempted:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// Label returns "expansion#2" style names for cycle stages and the bare name otherwise.
func (r StageResult) Label() string {
	if r.Cycle > 0 {
		return fmt.Sprintf("%s#%d", r.Stage, r.Cycle)
	}
	return r.Stage
}

// Summary formats a one-line description of the result.
func (r StageResult) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", r.Label(), r.Outcome)
	if r.Attempted > 0 {
		fmt.Fprintf(&sb, " (%d/%d ok)", r.Attempted-r.Failed, r.Attempted)
	}
	if r.Err != nil {
		fmt.Fprintf(&sb, ": %v", r.Err)
	}
	return sb.String()
}

// IsFatal reports whether a failure of the named stage ends the run.
func IsFatal(stage string) bool {
	return StageRegistry[stage].Fatal
}

// Failures returns the results whose outcome is not a success.
func Failures(results []StageResult) []StageResult {
	var out []StageResult
	for _, r := range results {
		if r.Outcome != OutcomeSucceeded {
			out = append(out, r)
		}
	}
	return out
}
