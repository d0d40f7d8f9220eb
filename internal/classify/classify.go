// Package classify turns a natural-language prompt into a motion module
// selection with simulation inputs. Two backends exist: a hosted
// text-generation model and an ordered keyword matcher. The composite
// tries the model first and silently falls back, so a caller never sees
// a model failure.
package classify

import (
	"context"

	"github.com/motionlab/kinema/internal/motion"
)

// Source values recorded on a classification.
const (
	SourceModel   = "model"
	SourceKeyword = "keyword"
)

// Result is one classifier decision. Module is empty when no module
// matched the prompt.
type Result struct {
	Module      string
	Inputs      map[string]any
	Explanation string
	Source      string
}

// Backend is a prompt classifier.
type Backend interface {
	Classify(ctx context.Context, prompt string) (Result, error)
}

// MergeDefaults overlays provided inputs onto the module's default
// parameter set, so partial extractions still produce a runnable
// simulation.
func MergeDefaults(kind motion.Kind, inputs map[string]any) map[string]any {
	merged := motion.DefaultInputs(kind)
	for k, v := range inputs {
		merged[k] = v
	}
	return merged
}
