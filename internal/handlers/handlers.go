// Package handlers is the application service behind the HTTP API and
// the terminal client. It ties the classifier, the session registry, and
// the recording pipeline together so the transports stay thin.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/motionlab/kinema/internal/classify"
	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/motion"
	"github.com/motionlab/kinema/internal/session"
	"github.com/motionlab/kinema/pkg/core"
)

// Publisher is the slice of the dispatcher the service needs.
type Publisher interface {
	Publish(topic string, payload any) (any, error)
}

// StatusSource provides a point-in-time health sample.
type StatusSource interface {
	Sample() *core.Performance
}

// Dependencies holds all dependencies needed by the service.
type Dependencies struct {
	Classifier classify.Backend
	Sessions   *session.Manager
	Status     StatusSource // nil disables the status endpoint data
	Publisher  Publisher    // nil disables recording
	LogManager *logging.SlogManager
}

// Service provides the application-level operations.
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service.
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// AskResult is the answer for a classified prompt. Module is nil when no
// simulation module matched.
type AskResult struct {
	Module      *string        `json:"module"`
	Inputs      map[string]any `json:"inputs"`
	Explanation string         `json:"explanation"`
}

// Ask classifies a prompt and records the decision. Matched modules get
// their extracted inputs merged over the module defaults so the result
// is always runnable.
func (s *Service) Ask(ctx context.Context, prompt string) (AskResult, error) {
	result, latency, err := s.classify(ctx, prompt)
	if err != nil {
		return AskResult{
			Inputs:      map[string]any{},
			Explanation: "Error processing request",
		}, err
	}

	s.recordClassification(prompt, result, latency, "")
	return toAskResult(result), nil
}

// CreateSession builds a session for an explicit module and input set.
func (s *Service) CreateSession(module string, inputs map[string]any) (*session.Session, error) {
	return s.deps.Sessions.Create(module, inputs)
}

// CreateFromPrompt classifies a prompt and, when a module matched,
// creates a session from the merged inputs. The recorded classification
// carries the session id so the run can be associated once it starts.
// A prompt with no matching module returns a nil session and no error.
func (s *Service) CreateFromPrompt(ctx context.Context, prompt string) (*session.Session, AskResult, error) {
	result, latency, err := s.classify(ctx, prompt)
	if err != nil {
		return nil, AskResult{
			Inputs:      map[string]any{},
			Explanation: "Error processing request",
		}, err
	}

	if result.Module == "" {
		s.recordClassification(prompt, result, latency, "")
		return nil, toAskResult(result), nil
	}

	merged := classify.MergeDefaults(motion.Kind(result.Module), result.Inputs)
	sess, err := s.deps.Sessions.Create(result.Module, merged)
	if err != nil {
		s.recordClassification(prompt, result, latency, "")
		return nil, toAskResult(result), err
	}

	s.recordClassification(prompt, result, latency, sess.ID())
	return sess, toAskResult(result), nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(id string) (*session.Session, error) {
	return s.deps.Sessions.Get(id)
}

// ListSessions returns all sessions.
func (s *Service) ListSessions() []*session.Session {
	return s.deps.Sessions.List()
}

// StartSession begins ticking a session.
func (s *Service) StartSession(id string) error {
	sess, err := s.deps.Sessions.Get(id)
	if err != nil {
		return err
	}
	sess.Start()
	return nil
}

// StopSession halts a session.
func (s *Service) StopSession(id string) error {
	sess, err := s.deps.Sessions.Get(id)
	if err != nil {
		return err
	}
	sess.Stop()
	return nil
}

// SetParam updates one simulation parameter, resetting the session.
func (s *Service) SetParam(id, name string, value any) error {
	sess, err := s.deps.Sessions.Get(id)
	if err != nil {
		return err
	}
	sess.SetParam(name, value)
	return nil
}

// RemoveSession stops and drops a session.
func (s *Service) RemoveSession(id string) error {
	return s.deps.Sessions.Remove(id)
}

// Status returns the current health sample, or nil when no monitor is
// wired.
func (s *Service) Status() *core.Performance {
	if s.deps.Status == nil {
		return nil
	}
	return s.deps.Status.Sample()
}

// logger tolerates a Service wired without a LogManager.
func (s *Service) logger() *slog.Logger {
	if s.deps.LogManager == nil {
		return slog.Default()
	}
	return s.deps.LogManager.Logger()
}

func (s *Service) classify(ctx context.Context, prompt string) (classify.Result, int64, error) {
	start := time.Now()
	result, err := s.deps.Classifier.Classify(ctx, prompt)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		s.logger().Error("Classification failed",
			"prompt", prompt, "error", err)
		return classify.Result{}, latency, err
	}
	return result, latency, nil
}

func (s *Service) recordClassification(prompt string, result classify.Result, latencyMS int64, sessionID string) {
	if s.deps.Publisher == nil {
		return
	}
	c := &core.Classification{
		SessionID:   sessionID,
		Prompt:      prompt,
		Module:      result.Module,
		Source:      result.Source,
		Explanation: result.Explanation,
		LatencyMS:   latencyMS,
		At:          time.Now(),
	}
	if _, err := s.deps.Publisher.Publish(dispatcher.TopicClassification, c); err != nil {
		s.logger().Debug("Failed to record classification", "error", err)
	}
}

func toAskResult(result classify.Result) AskResult {
	out := AskResult{
		Inputs:      result.Inputs,
		Explanation: result.Explanation,
	}
	if result.Module != "" {
		module := result.Module
		out.Module = &module
		out.Inputs = classify.MergeDefaults(motion.Kind(result.Module), result.Inputs)
	}
	if out.Inputs == nil {
		out.Inputs = map[string]any{}
	}
	return out
}
