package classify

import (
	"context"
	"log/slog"
)

// Fallback tries the primary backend and falls back to the secondary
// when the primary fails. With a keyword secondary the composite never
// returns an error, which is what the ask endpoint relies on.
type Fallback struct {
	primary   Backend
	secondary Backend
	logger    *slog.Logger
}

// NewFallback composes two backends. A nil primary degrades to the
// secondary alone.
func NewFallback(primary, secondary Backend, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Classify runs the primary, then the secondary on failure.
func (f *Fallback) Classify(ctx context.Context, prompt string) (Result, error) {
	if f.primary != nil {
		res, err := f.primary.Classify(ctx, prompt)
		if err == nil {
			return res, nil
		}
		f.logger.Warn("primary classifier failed, using fallback", "error", err)
	}
	return f.secondary.Classify(ctx, prompt)
}
