package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/mediadesk/internal/aggregate"
	"github.com/edgard/mediadesk/internal/ai"
	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/delivery"
	"github.com/edgard/mediadesk/internal/logger"
	"github.com/edgard/mediadesk/internal/metrics"
	"github.com/edgard/mediadesk/internal/persona"
	"github.com/edgard/mediadesk/internal/recent"
	"github.com/edgard/mediadesk/internal/source"
)

// Cadence names the kind of post a pipeline run produces.
type Cadence string

const (
	// CadencePersona is the frequent personality take on the most active group.
	CadencePersona Cadence = "persona"
	// CadenceHeadline is the scheduled headline over all groups.
	CadenceHeadline Cadence = "headline"
)

// ParseCadence maps a command-line name to a Cadence.
func ParseCadence(name string) (Cadence, error) {
	switch c := Cadence(name); c {
	case CadencePersona, CadenceHeadline:
		return c, nil
	default:
		return "", fmt.Errorf("unknown cadence %q (want %q or %q)", name, CadencePersona, CadenceHeadline)
	}
}

// Stage is the step a pipeline run is in.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageGathering  Stage = "gathering"
	StageGenerating Stage = "generating"
	StageFormatting Stage = "formatting"
	StageDelivering Stage = "delivering"
)

// Outcome is how a pipeline run ended.
type Outcome string

const (
	OutcomePosted           Outcome = "posted"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeNoMessages       Outcome = "no_messages"
	OutcomeNoPersona        Outcome = "no_persona"
	OutcomeGenerationFailed Outcome = "generation_failed"
	OutcomeDeliveryFailed   Outcome = "delivery_failed"
	OutcomePanic            Outcome = "panic"
)

var (
	ErrNoMessages       = errors.New("no messages to post about")
	ErrNoPersona        = errors.New("no personas configured")
	ErrGenerationFailed = errors.New("text generation failed")
	ErrDeliveryFailed   = errors.New("delivery failed")
	ErrPipelinePanic    = errors.New("pipeline panicked")
)

// Err maps the outcome to a sentinel error. Posted and duplicate runs return
// nil.
func (o Outcome) Err() error {
	switch o {
	case OutcomeNoMessages:
		return ErrNoMessages
	case OutcomeNoPersona:
		return ErrNoPersona
	case OutcomeGenerationFailed:
		return ErrGenerationFailed
	case OutcomeDeliveryFailed:
		return ErrDeliveryFailed
	case OutcomePanic:
		return ErrPipelinePanic
	default:
		return nil
	}
}

// Skipped reports whether the run ended without anything worth posting.
func (o Outcome) Skipped() bool {
	return o == OutcomeNoMessages || o == OutcomeDuplicate
}

// Gatherer collects recent messages for the configured channel groups.
type Gatherer interface {
	Gather(ctx context.Context, groups []config.ChannelGroup, limit int, since time.Time) []source.Message
}

// Poster delivers a finished post to a chat.
type Poster interface {
	Deliver(ctx context.Context, chatID int64, post delivery.Post) (delivery.Report, error)
}

// PipelineDeps holds what a Pipeline needs. Clock and Rand are optional.
type PipelineDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Source    Gatherer
	Generator ai.Generator
	Deliverer Poster
	Clock     clockwork.Clock
	Rand      *rand.Rand
}

// Pipeline runs gather, distill, generate, format and deliver for one
// cadence at a time. Runs of different cadences, and manual runs, may
// interleave; the memories it owns are safe for concurrent use and are only
// updated after a post went out.
type Pipeline struct {
	logger    *slog.Logger
	cfg       *config.Config
	source    Gatherer
	generator ai.Generator
	deliverer Poster
	clock     clockwork.Clock

	personas *persona.Selector
	topics   *recent.TopicMemory
	groups   *recent.FIFO
}

// NewPipeline creates a Pipeline with fresh memories sized from config.
func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	pc := deps.Config.Pipeline

	return &Pipeline{
		logger:    log.With("component", "pipeline"),
		cfg:       deps.Config,
		source:    deps.Source,
		generator: deps.Generator,
		deliverer: deps.Deliverer,
		clock:     clock,
		personas: persona.NewSelector(
			persona.FromConfig(deps.Config.Personas),
			persona.Policy(pc.PersonaPolicy),
			pc.PersonaMemorySize,
			deps.Rand,
		),
		topics: recent.NewTopicMemory(pc.TopicMemorySize, pc.TopicLength),
		groups: recent.NewFIFO(pc.GroupMemorySize),
	}
}

// draft is a post ready for delivery plus what to remember once it is sent.
// Duplicate checks key on generated, so the same take under another persona
// header still counts as a repeat.
type draft struct {
	text      string
	generated string
	group     string
	persona   *persona.Persona
}

// Run executes one pipeline run and reports how it ended. It never panics;
// a panic inside a stage is logged and reported as OutcomePanic.
func (p *Pipeline) Run(ctx context.Context, cadence Cadence) (outcome Outcome) {
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID, "cadence", string(cadence))
	start := p.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Pipeline run panicked", "panic", r, "stack", string(debug.Stack()))
			outcome = OutcomePanic
		}
		elapsed := p.clock.Since(start)
		metrics.PipelineRuns.WithLabelValues(string(cadence), string(outcome)).Inc()
		metrics.PipelineDuration.WithLabelValues(string(cadence)).Observe(elapsed.Seconds())
		log.InfoContext(ctx, "Pipeline run finished", "outcome", string(outcome), "stage", StageIdle, "duration", elapsed)
	}()

	var (
		d  draft
		ok bool
	)
	switch cadence {
	case CadenceHeadline:
		d, outcome, ok = p.headline(ctx, log)
	default:
		d, outcome, ok = p.persona(ctx, log)
	}
	if !ok {
		return outcome
	}

	return p.deliver(ctx, log, d)
}

// gather collects, deduplicates and windows messages, then builds the
// bundle. The lookback is applied both at the source and after dedup so the
// window holds regardless of how the history backend filters.
func (p *Pipeline) gather(ctx context.Context, log *slog.Logger, lookback time.Duration, budget int) aggregate.Bundle {
	log.DebugContext(ctx, "Pipeline stage", "stage", StageGathering, "lookback", lookback)
	pc := p.cfg.Pipeline
	now := p.clock.Now()

	msgs := p.source.Gather(ctx, p.cfg.ChannelGroups, pc.PerChannelLimit, now.Add(-lookback))
	msgs = aggregate.Dedup(msgs, pc.FingerprintLength)
	msgs = aggregate.Window(msgs, now, lookback, pc.PerChannelLimit)

	bundle := aggregate.Build(msgs, budget)
	log.InfoContext(ctx, "Gathered messages", "count", len(msgs), "groups", len(bundle.Groups))
	return bundle
}

func (p *Pipeline) persona(ctx context.Context, log *slog.Logger) (draft, Outcome, bool) {
	pc := p.cfg.Pipeline

	bundle := p.gather(ctx, log, pc.PersonaLookback, pc.PersonaCharBudget)
	if bundle.Empty() {
		log.InfoContext(ctx, "No messages found, skipping generation")
		return draft{}, OutcomeNoMessages, false
	}

	group, ok := aggregate.SelectActiveGroup(bundle, p.topics.Last(), p.groups.Contains)
	if !ok {
		log.InfoContext(ctx, "No active group found, skipping generation")
		return draft{}, OutcomeNoMessages, false
	}

	chosen, ok := p.personas.Choose()
	if !ok {
		log.ErrorContext(ctx, "No personas available")
		return draft{}, OutcomeNoPersona, false
	}
	log = log.With("group", group, "persona", chosen.Name)

	result := p.generate(ctx, log, ai.Request{
		SystemInstruction: personaSystemInstruction(p.cfg.AI.PersonaInstruction, chosen),
		UserPrompt:        userPrompt("the "+group+" channels", bundle.PerGroupText[group], p.topics.Topics()),
		MaxTokens:         p.cfg.AI.MaxTokens,
		Temperature:       p.cfg.AI.Temperature,
	})
	if !result.OK() {
		return draft{}, OutcomeGenerationFailed, false
	}

	log.DebugContext(ctx, "Pipeline stage", "stage", StageFormatting)
	return draft{
		text:      chosen.Format(result.Text),
		generated: result.Text,
		group:     group,
		persona:   &chosen,
	}, "", true
}

func (p *Pipeline) headline(ctx context.Context, log *slog.Logger) (draft, Outcome, bool) {
	pc := p.cfg.Pipeline

	bundle := p.gather(ctx, log, pc.HeadlineLookback, pc.HeadlineCharBudget)
	if bundle.Empty() {
		log.InfoContext(ctx, "No messages found, skipping generation")
		return draft{}, OutcomeNoMessages, false
	}

	result := p.generate(ctx, log, ai.Request{
		SystemInstruction: p.cfg.AI.HeadlineInstruction,
		UserPrompt:        userPrompt("across the league", bundle.CombinedText, p.topics.Topics()),
		MaxTokens:         p.cfg.AI.MaxTokens,
		Temperature:       p.cfg.AI.Temperature,
	})
	if !result.OK() {
		return draft{}, OutcomeGenerationFailed, false
	}

	log.DebugContext(ctx, "Pipeline stage", "stage", StageFormatting)
	return draft{text: persona.Headline(result.Text), generated: result.Text}, "", true
}

func (p *Pipeline) generate(ctx context.Context, log *slog.Logger, req ai.Request) ai.Result {
	log.DebugContext(ctx, "Pipeline stage", "stage", StageGenerating, "prompt_runes", len([]rune(req.UserPrompt)))

	result := p.generator.Generate(ctx, req, p.cfg.AI.Timeout)
	if !result.OK() {
		log.WarnContext(ctx, "Generation failed, abandoning run", "reason", result.Reason.String(), "error", result.Err)
	}
	return result
}

func (p *Pipeline) deliver(ctx context.Context, log *slog.Logger, d draft) Outcome {
	log.DebugContext(ctx, "Pipeline stage", "stage", StageDelivering)

	report, err := p.deliverer.Deliver(ctx, p.cfg.Telegram.OutputChatID, delivery.Post{Text: d.text, Key: d.generated})
	if report.Sent > 0 {
		p.remember(d)
	}
	switch {
	case err != nil:
		log.ErrorContext(ctx, "Failed to deliver post", "error", err, "chunks", report.Chunks, "sent", report.Sent)
		return OutcomeDeliveryFailed
	case report.Suppressed:
		log.InfoContext(ctx, "Post matches a recent one, not sending")
		return OutcomeDuplicate
	default:
		log.InfoContext(ctx, "Post delivered", "chunks", report.Chunks)
		return OutcomePosted
	}
}

func (p *Pipeline) remember(d draft) {
	p.topics.Remember(d.generated)
	if d.persona != nil {
		p.personas.MarkUsed(*d.persona)
	}
	if d.group != "" {
		p.groups.Add(d.group)
	}
}
