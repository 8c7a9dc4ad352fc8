package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/mediadesk/internal/ai"
	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/delivery"
	"github.com/edgard/mediadesk/internal/logger"
	"github.com/edgard/mediadesk/internal/recent"
	"github.com/edgard/mediadesk/internal/source"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{OutputChatID: -1001},
		AI: config.AIConfig{
			MaxTokens:           600,
			Temperature:         0.9,
			Timeout:             time.Second,
			PersonaInstruction:  "persona instruction",
			HeadlineInstruction: "headline instruction",
		},
		ChannelGroups: []config.ChannelGroup{{Name: "A"}, {Name: "B"}},
		Personas:      []config.PersonaConfig{{Name: "Uncle Dale", Style: "fan at the bar", Weight: 1}},
		Pipeline: config.PipelineConfig{
			PersonaLookback:    24 * time.Hour,
			HeadlineLookback:   48 * time.Hour,
			PerChannelLimit:    20,
			PersonaCharBudget:  4000,
			HeadlineCharBudget: 8000,
			PersonaPolicy:      "weighted",
			FingerprintLength:  140,
			TopicLength:        48,
			TopicMemorySize:    8,
			PersonaMemorySize:  0,
			GroupMemorySize:    0,
			PostFingerprintMem: 16,
		},
		Delivery: config.DeliveryConfig{HardCap: 1900},
	}
}

type fakeGatherer struct {
	msgs  []source.Message
	since []time.Time
}

func (f *fakeGatherer) Gather(_ context.Context, _ []config.ChannelGroup, _ int, since time.Time) []source.Message {
	f.since = append(f.since, since)
	return f.msgs
}

type fakeGenerator struct {
	mu       sync.Mutex
	results  []ai.Result
	requests []ai.Request
	panics   bool
}

func (f *fakeGenerator) Generate(_ context.Context, req ai.Request, _ time.Duration) ai.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("backend exploded")
	}
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return ai.Failure(ai.ReasonNoChoices, errors.New("no more results"))
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r
}

type recordingSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *recordingSender) Send(_ context.Context, _ int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

type testPipeline struct {
	*Pipeline
	gatherer  *fakeGatherer
	generator *fakeGenerator
	sender    *recordingSender
}

func newTestPipeline(t *testing.T, msgs []source.Message, results ...ai.Result) *testPipeline {
	t.Helper()
	return newTestPipelineWithConfig(t, newTestConfig(), msgs, results...)
}

func newTestPipelineWithConfig(t *testing.T, cfg *config.Config, msgs []source.Message, results ...ai.Result) *testPipeline {
	t.Helper()

	tp := &testPipeline{
		gatherer:  &fakeGatherer{msgs: msgs},
		generator: &fakeGenerator{results: results},
		sender:    &recordingSender{},
	}
	posts := recent.NewPostCache(cfg.Pipeline.PostFingerprintMem, cfg.Pipeline.FingerprintLength)
	tp.Pipeline = NewPipeline(PipelineDeps{
		Logger:    logger.Discard(),
		Config:    cfg,
		Source:    tp.gatherer,
		Generator: tp.generator,
		Deliverer: delivery.NewDeliverer(tp.sender, posts, cfg.Delivery.HardCap, 0, logger.Discard()),
		Clock:     clockwork.NewFakeClockAt(testNow),
	})
	return tp
}

func msg(group, content string, age time.Duration) source.Message {
	return source.Message{
		Group:        group,
		ChannelLabel: "general",
		Author:       "dale",
		Content:      content,
		Timestamp:    testNow.Add(-age),
	}
}

func TestPipelineGenerationFailureNeverDelivers(t *testing.T) {
	reasons := []ai.Reason{ai.ReasonNoChoices, ai.ReasonTimeout, ai.ReasonTransport, ai.ReasonMalformed}
	for _, cadence := range []Cadence{CadencePersona, CadenceHeadline} {
		for _, reason := range reasons {
			t.Run(string(cadence)+"/"+reason.String(), func(t *testing.T) {
				tp := newTestPipeline(t,
					[]source.Message{msg("A", "trade buzz", time.Hour)},
					ai.Failure(reason, errors.New("boom")),
				)

				outcome := tp.Run(context.Background(), cadence)

				assert.Equal(t, OutcomeGenerationFailed, outcome)
				assert.ErrorIs(t, outcome.Err(), ErrGenerationFailed)
				assert.Empty(t, tp.sender.texts)
				assert.Empty(t, tp.topics.Topics())
			})
		}
	}
}

func TestPipelineNoMessagesSkipsGeneration(t *testing.T) {
	tests := []struct {
		name    string
		cadence Cadence
		msgs    []source.Message
	}{
		{name: "persona with nothing", cadence: CadencePersona},
		{name: "headline with nothing", cadence: CadenceHeadline},
		{name: "persona with only 25h old message", cadence: CadencePersona, msgs: []source.Message{msg("A", "old news", 25 * time.Hour)}},
		{name: "headline with only 49h old message", cadence: CadenceHeadline, msgs: []source.Message{msg("A", "old news", 49 * time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newTestPipeline(t, tt.msgs, ai.Success("unused"))

			outcome := tp.Run(context.Background(), tt.cadence)

			assert.Equal(t, OutcomeNoMessages, outcome)
			assert.True(t, outcome.Skipped())
			assert.Empty(t, tp.generator.requests)
			assert.Empty(t, tp.sender.texts)
		})
	}
}

func TestPipelinePersonaPost(t *testing.T) {
	tp := newTestPipeline(t,
		[]source.Message{
			msg("A", "trade buzz around the deadline", 2*time.Hour),
			msg("B", "", time.Hour),
		},
		ai.Success("The deadline is heating up."),
	)

	outcome := tp.Run(context.Background(), CadencePersona)
	require.Equal(t, OutcomePosted, outcome)
	assert.NoError(t, outcome.Err())

	require.Len(t, tp.gatherer.since, 1)
	assert.Equal(t, testNow.Add(-24*time.Hour), tp.gatherer.since[0])

	require.Len(t, tp.generator.requests, 1)
	req := tp.generator.requests[0]
	assert.Contains(t, req.SystemInstruction, "persona instruction")
	assert.Contains(t, req.SystemInstruction, "Uncle Dale")
	assert.Contains(t, req.UserPrompt, "[A:general] dale: trade buzz around the deadline")
	assert.Equal(t, 600, req.MaxTokens)

	require.Len(t, tp.sender.texts, 1)
	assert.Equal(t, "Uncle Dale (fan at the bar):\nThe deadline is heating up.", tp.sender.texts[0])
	assert.Equal(t, []string{"the deadline is heating up."}, tp.topics.Topics())
}

func TestPipelineHeadlinePost(t *testing.T) {
	tp := newTestPipeline(t,
		[]source.Message{
			msg("A", "trade buzz", 30*time.Hour),
			msg("B", "injury report", time.Hour),
		},
		ai.Success("## Headline: Deadline Frenzy\nTwo leagues, one storyline."),
	)

	require.Equal(t, OutcomePosted, tp.Run(context.Background(), CadenceHeadline))

	require.Len(t, tp.gatherer.since, 1)
	assert.Equal(t, testNow.Add(-48*time.Hour), tp.gatherer.since[0])

	require.Len(t, tp.generator.requests, 1)
	req := tp.generator.requests[0]
	assert.Equal(t, "headline instruction", req.SystemInstruction)
	assert.Contains(t, req.UserPrompt, "[A:general] dale: trade buzz\n[B:general] dale: injury report")

	require.Len(t, tp.sender.texts, 1)
	assert.Equal(t, "**Deadline Frenzy**\n\nTwo leagues, one storyline.", tp.sender.texts[0])
}

func TestPipelineSuppressesDuplicatePost(t *testing.T) {
	tp := newTestPipeline(t,
		[]source.Message{msg("A", "trade buzz", time.Hour)},
		ai.Success("Deadline Frenzy\nSame story twice."),
	)

	assert.Equal(t, OutcomePosted, tp.Run(context.Background(), CadenceHeadline))
	outcome := tp.Run(context.Background(), CadenceHeadline)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.True(t, outcome.Skipped())
	assert.NoError(t, outcome.Err())
	assert.Len(t, tp.sender.texts, 1)
}

func TestPipelineSuppressesDuplicateTakeUnderAnotherPersona(t *testing.T) {
	cfg := newTestConfig()
	cfg.Personas = []config.PersonaConfig{
		{Name: "Uncle Dale", Style: "fan", Weight: 1},
		{Name: "The Insider", Style: "coy", Weight: 1},
	}
	cfg.Pipeline.PersonaMemorySize = 1

	tp := newTestPipelineWithConfig(t, cfg,
		[]source.Message{msg("A", "trade buzz", time.Hour)},
		ai.Success("The deadline is heating up."),
	)

	require.Equal(t, OutcomePosted, tp.Run(context.Background(), CadencePersona))
	outcome := tp.Run(context.Background(), CadencePersona)

	assert.Equal(t, OutcomeDuplicate, outcome)
	require.Len(t, tp.generator.requests, 2)
	assert.NotEqual(t, tp.generator.requests[0].SystemInstruction, tp.generator.requests[1].SystemInstruction,
		"second run picks the other persona")
	assert.Len(t, tp.sender.texts, 1)
}

func TestPipelinePassesRecentTopics(t *testing.T) {
	tp := newTestPipeline(t,
		[]source.Message{msg("A", "trade buzz", time.Hour)},
		ai.Success("Deadline Frenzy\nFirst take."),
		ai.Success("Prospect Watch\nSecond take."),
	)

	require.Equal(t, OutcomePosted, tp.Run(context.Background(), CadenceHeadline))
	require.Equal(t, OutcomePosted, tp.Run(context.Background(), CadenceHeadline))

	require.Len(t, tp.generator.requests, 2)
	assert.NotContains(t, tp.generator.requests[0].UserPrompt, avoidTopicsHeader)
	assert.Contains(t, tp.generator.requests[1].UserPrompt, avoidTopicsHeader+"\n- deadline frenzy")
}

func TestPipelineDeliveryFailure(t *testing.T) {
	tp := newTestPipeline(t,
		[]source.Message{msg("A", "trade buzz", time.Hour)},
		ai.Success("Deadline Frenzy"),
	)
	tp.sender.err = errors.New("Forbidden: bot is not a member of the channel chat")

	outcome := tp.Run(context.Background(), CadencePersona)

	assert.Equal(t, OutcomeDeliveryFailed, outcome)
	assert.ErrorIs(t, outcome.Err(), ErrDeliveryFailed)
	assert.Empty(t, tp.topics.Topics())
}

func TestPipelineRecoversFromPanic(t *testing.T) {
	tp := newTestPipeline(t, []source.Message{msg("A", "trade buzz", time.Hour)})
	tp.generator.panics = true

	var outcome Outcome
	assert.NotPanics(t, func() { outcome = tp.Run(context.Background(), CadenceHeadline) })
	assert.Equal(t, OutcomePanic, outcome)
	assert.Empty(t, tp.sender.texts)
}

func TestParseCadence(t *testing.T) {
	c, err := ParseCadence("headline")
	require.NoError(t, err)
	assert.Equal(t, CadenceHeadline, c)

	c, err = ParseCadence("persona")
	require.NoError(t, err)
	assert.Equal(t, CadencePersona, c)

	_, err = ParseCadence("weekly")
	assert.Error(t, err)
}
