package classify

import (
	"context"
	"strings"

	"github.com/motionlab/kinema/internal/motion"
)

// keywordRule matches a prompt against a module's trigger words.
type keywordRule struct {
	kind        motion.Kind
	words       []string
	explanation string
}

// Rules are checked in order; the first match wins. The projectile rule
// additionally matches "motion" combined with "ball" or "object".
var keywordRules = []keywordRule{
	{
		kind:        motion.KindProjectile,
		words:       []string{"projectile", "ballistic", "trajectory", "throwing", "launch", "parabolic"},
		explanation: "Projectile motion follows a parabolic path: constant horizontal velocity and uniform vertical acceleration under gravity.",
	},
	{
		kind:        motion.KindSpring,
		words:       []string{"spring", "oscillation", "harmonic", "hooke", "vibration", "mass-spring", "damping"},
		explanation: "A mass on a spring oscillates harmonically; the restoring force is proportional to displacement (Hooke's law).",
	},
	{
		kind:        motion.KindPendulum,
		words:       []string{"pendulum", "swinging", "swing", "bob"},
		explanation: "A pendulum swings with a period set by its length and gravity; small angles give simple harmonic motion.",
	},
	{
		kind:        motion.KindWave,
		words:       []string{"wave", "vibration", "transverse", "longitudinal", "propagation", "frequency", "wavelength", "amplitude"},
		explanation: "A wave carries energy through a medium; its speed is the product of frequency and wavelength.",
	},
}

const noMatchExplanation = "I couldn't match that to a simulation. Try asking about projectiles, springs, pendulums, or waves."

// KeywordBackend is the offline classifier. It never fails.
type KeywordBackend struct{}

// NewKeyword creates the keyword classifier.
func NewKeyword() *KeywordBackend {
	return &KeywordBackend{}
}

// Classify matches the prompt case-insensitively against the ordered
// rule list. Inputs are always the module defaults; keywords carry no
// parameter information.
func (b *KeywordBackend) Classify(_ context.Context, prompt string) (Result, error) {
	lower := strings.ToLower(prompt)

	for _, rule := range keywordRules {
		if matchRule(lower, rule) {
			return Result{
				Module:      string(rule.kind),
				Inputs:      motion.DefaultInputs(rule.kind),
				Explanation: rule.explanation,
				Source:      SourceKeyword,
			}, nil
		}
	}

	return Result{
		Inputs:      map[string]any{},
		Explanation: noMatchExplanation,
		Source:      SourceKeyword,
	}, nil
}

func matchRule(lower string, rule keywordRule) bool {
	for _, w := range rule.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	if rule.kind == motion.KindProjectile && strings.Contains(lower, "motion") {
		return strings.Contains(lower, "ball") || strings.Contains(lower, "object")
	}
	return false
}
