package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/motionlab/kinema/internal/motion"
	"github.com/motionlab/kinema/internal/parser"
)

// instructionTemplate is the fixed system instruction sent with every
// classification request. The model must answer with a bare JSON object
// so the parser can extract it without prose handling.
const instructionTemplate = `You classify physics questions into simulation modules.

The available modules and their numeric inputs are:
- "ProjectileMotion": velocity (m/s), angle (degrees), gravity (m/s^2), timeStep (s)
- "SpringOscillation": mass (kg), springConstant (N/m), amplitude (m), damping, timeStep (s)
- "PendulumMotion": length (m), mass (kg), initialAngle (degrees), gravity (m/s^2), damping, timeStep (s)
- "WaveVibration": frequency (Hz), amplitude (m), wavelength (m), damping, timeStep (s), waveType ("transverse" or "longitudinal")

Respond with ONLY a JSON object in this exact format, no other text:
{
  "module": "<module name or null if no module fits>",
  "inputs": { <only the inputs the question states, as numbers> },
  "explanation": "<one or two sentences of physics context for the user>"
}

If the question is not about motion that any module can simulate, set
"module" to null and explain briefly what the simulator can do.`

// Completer is the text-generation call the LLM backend depends on.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// LLMBackend classifies prompts through a hosted text-generation model.
type LLMBackend struct {
	completer Completer
	parser    *parser.Parser
	logger    *slog.Logger
}

// NewLLM creates the model-backed classifier.
func NewLLM(completer Completer, logger *slog.Logger) *LLMBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMBackend{
		completer: completer,
		parser:    parser.New(logger),
		logger:    logger,
	}
}

// Classify sends the prompt to the model and parses its JSON answer.
// Transport failures and malformed output both surface as errors for the
// composite to recover from.
func (b *LLMBackend) Classify(ctx context.Context, prompt string) (Result, error) {
	text, err := b.completer.Complete(ctx, instructionTemplate, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("model request failed: %w", err)
	}

	payload, err := b.parser.ParsePayload(text)
	if err != nil {
		return Result{}, fmt.Errorf("model output unusable: %w", err)
	}

	res := Result{
		Module:      payload.Module,
		Inputs:      payload.Inputs,
		Explanation: payload.Explanation,
		Source:      SourceModel,
	}
	if res.Module != "" {
		res.Inputs = MergeDefaults(motion.Kind(res.Module), payload.Inputs)
	}

	b.logger.Debug("model classification", "module", res.Module, "inputs", len(payload.Inputs))
	return res, nil
}
