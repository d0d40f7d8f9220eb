// Package parser turns raw language-model output into classification
// payloads. It has zero external dependencies beyond a logger.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/motionlab/kinema/internal/motion"
	"github.com/motionlab/kinema/internal/util"
)

// ErrNoJSON is returned when the model output contains no balanced JSON object.
var ErrNoJSON = fmt.Errorf("no JSON object found in model output")

// ErrBadShape is returned when the extracted JSON lacks the expected fields
// or names an unknown module.
var ErrBadShape = fmt.Errorf("model output does not match expected shape")

// Payload is the structured result extracted from model output.
// Module is empty when the model answered with null (no matching module).
type Payload struct {
	Module      string
	Inputs      map[string]any
	Explanation string
}

// Parser provides free text -> Payload conversion.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser logging through the given logger.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// rawPayload matches the JSON shape the instruction template demands.
type rawPayload struct {
	Module      *string        `json:"module"`
	Inputs      map[string]any `json:"inputs"`
	Explanation string         `json:"explanation"`
}

// ParsePayload extracts and validates the first JSON object in the model
// output. The module must be one of the known names or null; anything
// else is a malformed response.
func (p *Parser) ParsePayload(text string) (Payload, error) {
	cleaned := util.StripCodeFences(text)

	obj, ok := ExtractJSONObject(cleaned)
	if !ok {
		p.logger.Debug("no JSON object in model output", "length", len(text))
		return Payload{}, ErrNoJSON
	}

	var raw rawPayload
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		p.logger.Debug("model output JSON did not decode", "error", err)
		return Payload{}, fmt.Errorf("%w: %v", ErrBadShape, err)
	}

	out := Payload{
		Inputs:      coerceInputs(raw.Inputs),
		Explanation: raw.Explanation,
	}

	if raw.Module != nil {
		name := util.TrimQuotes(*raw.Module)
		if name != "" && name != "null" {
			if !motion.Known(name) {
				return Payload{}, fmt.Errorf("%w: unknown module %q", ErrBadShape, name)
			}
			out.Module = name
		}
	}

	return out, nil
}

// coerceInputs normalizes input values: JSON numbers stay float64,
// numeric strings are converted, and anything else passes through for
// the defaults layer to overrule.
func coerceInputs(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				out[k] = f
			} else {
				out[k] = t
			}
		case json.Number:
			if f, err := t.Float64(); err == nil {
				out[k] = f
			}
		default:
			out[k] = v
		}
	}
	return out
}
