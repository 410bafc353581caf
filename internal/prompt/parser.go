package prompt

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/llm"
	"github.com/google/uuid"
)

// Outcome of one parse attempt, recorded on its audit.
type Outcome string

const (
	OutcomeClassified   Outcome = "classified"
	OutcomeFallback     Outcome = "fallback"
	OutcomeFlagged      Outcome = "flagged"
	OutcomeUnclassified Outcome = "unclassified"
)

// Reasons the keyword fallback ran instead of the classifier.
const (
	ReasonDisabled          = "disabled"
	ReasonTimeout           = "timeout"
	ReasonMalformed         = "malformed"
	ReasonClassifierError   = "classifier_error"
	ReasonLowConfidence     = "low_confidence"
	ReasonClassifierUnknown = "classifier_unknown"
)

// Result is what the parser understood. Action is ActionUnclassified when
// nothing usable was found.
type Result struct {
	Action         Action
	Category       string
	Confidence     float64
	Outcome        Outcome
	FallbackReason string
	PatternClass   string
	TextLength     int
	Truncated      bool
	LatencyMs      int64
}

// Usable reports whether the result names an action the engine can act on.
func (r Result) Usable() bool {
	return r.Action != ActionUnclassified && r.Action != ActionUnknown
}

// AuditWriter persists parse audits.
type AuditWriter interface {
	Create(ctx context.Context, a *domain.AuditRecord) error
}

// FlagWriter persists injection flags for review.
type FlagWriter interface {
	CreateInjection(ctx context.Context, f *domain.InjectionFlag) error
}

type Config struct {
	MaxLength     int
	Timeout       time.Duration
	MinConfidence float64
}

// Parser turns traveler free text into an action. Raw text never leaves
// this package except inside the classifier's bounded input.
type Parser struct {
	classifier Classifier
	audits     AuditWriter
	flags      FlagWriter
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewParser builds a parser. A nil classifier sends every request straight
// to the keyword fallback.
func NewParser(classifier Classifier, audits AuditWriter, flags FlagWriter, cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	return &Parser{
		classifier: classifier,
		audits:     audits,
		flags:      flags,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source; used by tests.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// Parse never fails. Storage errors while auditing are logged and dropped.
func (p *Parser) Parse(ctx context.Context, principal domain.Principal, tripID, text string) Result {
	start := p.now()
	text, truncated := truncateRunes(text, p.cfg.MaxLength)
	res := Result{
		Action:     ActionUnclassified,
		TextLength: utf8.RuneCountInString(text),
		Truncated:  truncated,
	}

	if class := Screen(text); class != "" {
		res.Outcome = OutcomeFlagged
		res.PatternClass = class
		p.flag(ctx, principal, tripID, class, res.TextLength)
		res.LatencyMs = p.now().Sub(start).Milliseconds()
		p.audit(ctx, tripID, res)
		return res
	}

	cls, reason := p.classify(ctx, Wrap(text))
	if reason == "" {
		res.Action = cls.Action
		res.Category = cls.Category
		res.Confidence = cls.Confidence
		res.Outcome = OutcomeClassified
	} else {
		res.FallbackReason = reason
		action, category := Fallback(text)
		if action == ActionUnknown {
			res.Outcome = OutcomeUnclassified
		} else {
			res.Action = action
			res.Category = category
			res.Outcome = OutcomeFallback
		}
	}
	res.LatencyMs = p.now().Sub(start).Milliseconds()
	p.audit(ctx, tripID, res)
	return res
}

type classifyResult struct {
	c   Classification
	err error
}

// classify returns an empty reason on a usable classification. The result
// channel is buffered so an abandoned call never blocks its goroutine.
func (p *Parser) classify(ctx context.Context, bounded string) (Classification, string) {
	if p.classifier == nil {
		return Classification{}, ReasonDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	ch := make(chan classifyResult, 1)
	go func() {
		c, err := p.classifier.Classify(ctx, bounded)
		ch <- classifyResult{c: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return Classification{}, ReasonTimeout
	case r := <-ch:
		switch {
		case r.err == nil:
		case errors.Is(r.err, context.DeadlineExceeded), errors.Is(r.err, llm.ErrTimeout):
			return Classification{}, ReasonTimeout
		case errors.Is(r.err, llm.ErrInvalidOutput):
			return Classification{}, ReasonMalformed
		default:
			p.logger.Warn("classifier failed", "err", r.err)
			return Classification{}, ReasonClassifierError
		}
		if !ValidActions[r.c.Action] {
			return Classification{}, ReasonMalformed
		}
		if r.c.Confidence < p.cfg.MinConfidence {
			return Classification{}, ReasonLowConfidence
		}
		if r.c.Action == ActionUnknown {
			return Classification{}, ReasonClassifierUnknown
		}
		return r.c, ""
	}
}

func (p *Parser) flag(ctx context.Context, principal domain.Principal, tripID, class string, length int) {
	if p.flags != nil {
		err := p.flags.CreateInjection(ctx, &domain.InjectionFlag{
			ID:           uuid.NewString(),
			TripID:       tripID,
			UserID:       principal.UserID,
			PatternClass: class,
			TextLength:   length,
			ReviewStatus: domain.ReviewPending,
			CreatedAt:    p.now().UTC(),
		})
		if err != nil {
			p.logger.Error("recording injection flag", "trip_id", tripID, "err", err)
		}
	}
	p.write(ctx, &domain.AuditRecord{
		TripID:  tripID,
		Kind:    domain.AuditInjectionFlagged,
		Outcome: string(OutcomeFlagged),
		Metadata: map[string]any{
			"pattern_class": class,
			"text_length":   length,
		},
	})
}

func (p *Parser) audit(ctx context.Context, tripID string, res Result) {
	meta := map[string]any{
		"text_length": res.TextLength,
		"truncated":   res.Truncated,
		"latency_ms":  res.LatencyMs,
		"action":      string(res.Action),
	}
	if res.FallbackReason != "" {
		meta["fallback_reason"] = res.FallbackReason
	}
	if res.PatternClass != "" {
		meta["pattern_class"] = res.PatternClass
	}
	if res.Category != "" {
		meta["category"] = res.Category
	}
	p.write(ctx, &domain.AuditRecord{
		TripID:   tripID,
		Kind:     domain.AuditParseAttempt,
		Outcome:  string(res.Outcome),
		Metadata: meta,
	})
}

func (p *Parser) write(ctx context.Context, a *domain.AuditRecord) {
	if p.audits == nil {
		return
	}
	a.ID = uuid.NewString()
	a.CreatedAt = p.now().UTC()
	if err := p.audits.Create(ctx, a); err != nil {
		p.logger.Error("recording audit", "kind", a.Kind, "trip_id", a.TripID, "err", err)
	}
}

// truncateRunes cuts text to at most n runes without splitting a character.
func truncateRunes(text string, n int) (string, bool) {
	if utf8.RuneCountInString(text) <= n {
		return text, false
	}
	i := 0
	for idx := range text {
		if i == n {
			return text[:idx], true
		}
		i++
	}
	return text, false
}
