package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a slog handler that ships JSON records to a
// Graylog server over UDP. The writer buffers and chunks internally, so
// log calls never block on the network.
func NewGELFHandler(addr string, opts *slog.HandlerOptions) (slog.Handler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("gelf writer for %s: %w", addr, err)
	}
	return slog.NewJSONHandler(w, opts), nil
}
