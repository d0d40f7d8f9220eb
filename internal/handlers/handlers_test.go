package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motionlab/kinema/internal/classify"
	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/session"
	"github.com/motionlab/kinema/pkg/core"
)

// stubClassifier returns a fixed result or error.
type stubClassifier struct {
	result classify.Result
	err    error
}

func (c *stubClassifier) Classify(ctx context.Context, prompt string) (classify.Result, error) {
	return c.result, c.err
}

// capturingPublisher records published events.
type capturingPublisher struct {
	topics   []string
	payloads []any
}

func (p *capturingPublisher) Publish(topic string, payload any) (any, error) {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil, nil
}

func newTestService(c classify.Backend, p Publisher) *Service {
	return NewService(Dependencies{
		Classifier: c,
		Sessions:   session.NewManager(nil, nil),
		Publisher:  p,
		LogManager: logging.NewSlogManager(),
	})
}

func TestAsk_MatchedModule(t *testing.T) {
	classifier := &stubClassifier{result: classify.Result{
		Module:      "PendulumMotion",
		Inputs:      map[string]any{"length": 2.0},
		Explanation: "A swinging pendulum.",
		Source:      classify.SourceKeyword,
	}}
	pub := &capturingPublisher{}
	svc := newTestService(classifier, pub)

	res, err := svc.Ask(context.Background(), "show me a pendulum")
	require.NoError(t, err)

	require.NotNil(t, res.Module)
	assert.Equal(t, "PendulumMotion", *res.Module)
	assert.Equal(t, "A swinging pendulum.", res.Explanation)

	// Extracted inputs merged over module defaults.
	assert.Equal(t, 2.0, res.Inputs["length"])
	assert.Equal(t, 9.8, res.Inputs["gravity"])
	assert.Equal(t, 30.0, res.Inputs["initialAngle"])
}

func TestAsk_NoMatch(t *testing.T) {
	classifier := &stubClassifier{result: classify.Result{
		Explanation: "Try asking about projectiles, springs, pendulums, or waves.",
		Source:      classify.SourceKeyword,
	}}
	svc := newTestService(classifier, &capturingPublisher{})

	res, err := svc.Ask(context.Background(), "what is the meaning of life")
	require.NoError(t, err)

	assert.Nil(t, res.Module)
	assert.NotNil(t, res.Inputs)
	assert.Empty(t, res.Inputs)
	assert.NotEmpty(t, res.Explanation)
}

func TestAsk_ClassifierError(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("boom")}
	pub := &capturingPublisher{}
	svc := newTestService(classifier, pub)

	res, err := svc.Ask(context.Background(), "anything")
	require.Error(t, err)

	assert.Nil(t, res.Module)
	assert.Equal(t, "Error processing request", res.Explanation)
	assert.Empty(t, pub.topics, "failed classifications are not recorded")
}

func TestAsk_ClassifierErrorWithoutLogManager(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("boom")}
	svc := NewService(Dependencies{
		Classifier: classifier,
		Sessions:   session.NewManager(nil, nil),
	})

	res, err := svc.Ask(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, "Error processing request", res.Explanation)
}

func TestAsk_PublishesClassification(t *testing.T) {
	classifier := &stubClassifier{result: classify.Result{
		Module: "SpringOscillation",
		Source: classify.SourceModel,
	}}
	pub := &capturingPublisher{}
	svc := newTestService(classifier, pub)

	_, err := svc.Ask(context.Background(), "a mass on a spring")
	require.NoError(t, err)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, dispatcher.TopicClassification, pub.topics[0])

	c, ok := pub.payloads[0].(*core.Classification)
	require.True(t, ok)
	assert.Equal(t, "a mass on a spring", c.Prompt)
	assert.Equal(t, "SpringOscillation", c.Module)
	assert.Equal(t, classify.SourceModel, c.Source)
	assert.Empty(t, c.SessionID)
	assert.False(t, c.At.IsZero())
}

func TestCreateFromPrompt_CreatesSession(t *testing.T) {
	classifier := &stubClassifier{result: classify.Result{
		Module: "WaveVibration",
		Inputs: map[string]any{"frequency": 3.0},
		Source: classify.SourceKeyword,
	}}
	pub := &capturingPublisher{}
	svc := newTestService(classifier, pub)

	sess, res, err := svc.CreateFromPrompt(context.Background(), "show a wave")
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "WaveVibration", sess.Module())
	require.NotNil(t, res.Module)
	assert.Equal(t, "WaveVibration", *res.Module)

	require.Len(t, pub.payloads, 1)
	c := pub.payloads[0].(*core.Classification)
	assert.Equal(t, sess.ID(), c.SessionID)
}

func TestCreateFromPrompt_NoMatch(t *testing.T) {
	classifier := &stubClassifier{result: classify.Result{
		Explanation: "no idea",
		Source:      classify.SourceKeyword,
	}}
	pub := &capturingPublisher{}
	svc := newTestService(classifier, pub)

	sess, res, err := svc.CreateFromPrompt(context.Background(), "gibberish")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, res.Module)

	require.Len(t, pub.payloads, 1)
	c := pub.payloads[0].(*core.Classification)
	assert.Empty(t, c.SessionID)
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestService(&stubClassifier{}, nil)

	sess, err := svc.CreateSession("SpringOscillation", nil)
	require.NoError(t, err)

	require.NoError(t, svc.StartSession(sess.ID()))
	assert.True(t, sess.State().IsRunning)

	require.NoError(t, svc.StopSession(sess.ID()))
	assert.False(t, sess.State().IsRunning)

	require.NoError(t, svc.SetParam(sess.ID(), "mass", 2.5))
	assert.Equal(t, 2.5, sess.Inputs()["mass"])

	assert.Len(t, svc.ListSessions(), 1)
	require.NoError(t, svc.RemoveSession(sess.ID()))
	assert.Empty(t, svc.ListSessions())
}

func TestSessionOps_UnknownID(t *testing.T) {
	svc := newTestService(&stubClassifier{}, nil)

	assert.ErrorIs(t, svc.StartSession("sess-99"), session.ErrSessionNotFound)
	assert.ErrorIs(t, svc.StopSession("sess-99"), session.ErrSessionNotFound)
	assert.ErrorIs(t, svc.SetParam("sess-99", "mass", 1.0), session.ErrSessionNotFound)
	assert.ErrorIs(t, svc.RemoveSession("sess-99"), session.ErrSessionNotFound)

	_, err := svc.GetSession("sess-99")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestCreateSession_UnknownModule(t *testing.T) {
	svc := newTestService(&stubClassifier{}, nil)

	_, err := svc.CreateSession("Thermodynamics", nil)
	assert.ErrorIs(t, err, session.ErrUnknownModule)
}

func TestStatus_NilSource(t *testing.T) {
	svc := newTestService(&stubClassifier{}, nil)
	assert.Nil(t, svc.Status())
}
