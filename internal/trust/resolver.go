// Package trust handles problems a traveler reports on a slot. A preference
// mismatch becomes a training signal; bad venue data goes to admin review.
package trust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/prompt"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/google/uuid"
)

type Kind string

const (
	WrongForMe       Kind = "wrong_for_me"
	WrongInformation Kind = "wrong_information"
)

// maxNoteLength bounds the free-text note kept on a content flag.
const maxNoteLength = 500

// ReviewQueue receives content flags once they are committed.
type ReviewQueue interface {
	Enqueue(ctx context.Context, f *domain.ContentFlag) error
}

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type Resolver struct {
	uow      db.UnitOfWork
	queue    ReviewQueue
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewResolver(uow db.UnitOfWork, queue ReviewQueue, notifier Notifier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{uow: uow, queue: queue, notifier: notifier, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

type Report struct {
	SlotID string
	Kind   Kind
	Note   string
}

// Outcome describes what a report wrote.
type Outcome struct {
	Kind     Kind
	SlotID   string
	NodeID   string
	FlagID   string
	Signaled bool
}

// Resolve records a report. Neither path changes any itinerary slot.
func (r *Resolver) Resolve(ctx context.Context, principal domain.Principal, rep Report) (*Outcome, error) {
	if rep.SlotID == "" {
		return nil, domain.NewValidationError("slot id is required")
	}
	switch rep.Kind {
	case WrongForMe:
		return r.wrongForMe(ctx, principal, rep)
	case WrongInformation:
		return r.wrongInformation(ctx, principal, rep)
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unknown flag kind %q", rep.Kind))
	}
}

func (r *Resolver) wrongForMe(ctx context.Context, principal domain.Principal, rep Report) (*Outcome, error) {
	now := r.now()
	out := &Outcome{Kind: WrongForMe, SlotID: rep.SlotID, Signaled: true}

	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		slot, err := loadSlot(ctx, tx, principal, rep.SlotID)
		if err != nil {
			return err
		}
		out.NodeID = slot.ActivityNodeID

		signals := repository.NewSQLiteSignalRepo(tx)
		if err := signals.CreateIntention(ctx, &domain.IntentionSignal{
			ID:             uuid.NewString(),
			UserID:         principal.UserID,
			TripID:         slot.TripID,
			SlotID:         slot.ID,
			ActivityNodeID: slot.ActivityNodeID,
			Source:         domain.SourceExplicit,
			Confidence:     domain.ConfidenceExplicit,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		nodeID := slot.ActivityNodeID
		return signals.CreateBehavioral(ctx, &domain.BehavioralSignal{
			ID:             uuid.NewString(),
			TripID:         slot.TripID,
			SlotID:         slot.ID,
			ActivityNodeID: &nodeID,
			Kind:           domain.SignalWrongForMe,
			Weight:         domain.WeightWrongForMe,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) wrongInformation(ctx context.Context, principal domain.Principal, rep Report) (*Outcome, error) {
	now := r.now()
	var flag *domain.ContentFlag
	var tripID string

	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		slot, err := loadSlot(ctx, tx, principal, rep.SlotID)
		if err != nil {
			return err
		}
		tripID = slot.TripID
		flag = &domain.ContentFlag{
			ID:             uuid.NewString(),
			ActivityNodeID: slot.ActivityNodeID,
			SlotID:         slot.ID,
			ReporterUserID: principal.UserID,
			Note:           cleanNote(rep.Note),
			ReviewStatus:   domain.ReviewPending,
			CreatedAt:      now,
		}
		if err := repository.NewSQLiteFlagRepo(tx).CreateContent(ctx, flag); err != nil {
			return err
		}
		return repository.NewSQLiteActivityRepo(tx).SetReviewStatus(ctx, slot.ActivityNodeID, domain.ReviewPending)
	})
	if err != nil {
		return nil, err
	}

	if r.queue != nil {
		if err := r.queue.Enqueue(ctx, flag); err != nil {
			r.logger.Warn("review queue rejected flag", "flag_id", flag.ID, "err", err)
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, domain.Notification{
			Kind:   domain.NotifyContentFlagged,
			TripID: tripID,
			SlotID: flag.SlotID,
			UserID: principal.UserID,
			At:     now,
			Detail: map[string]any{"flag_id": flag.ID, "activity_node_id": flag.ActivityNodeID},
		}); err != nil {
			r.logger.Warn("notification failed", "kind", domain.NotifyContentFlagged, "err", err)
		}
	}
	return &Outcome{Kind: WrongInformation, SlotID: flag.SlotID, NodeID: flag.ActivityNodeID, FlagID: flag.ID}, nil
}

// Queue is the admin view of everything awaiting review.
type Queue struct {
	Content    []*domain.ContentFlag
	Injections []*domain.InjectionFlag
}

// ListReviewQueue lists pending flags. Only admins may see it.
func (r *Resolver) ListReviewQueue(ctx context.Context, principal domain.Principal) (*Queue, error) {
	if err := principal.Require(domain.ScopeAdminReview, ""); err != nil {
		return nil, err
	}
	q := &Queue{}
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		flags := repository.NewSQLiteFlagRepo(tx)
		var err error
		if q.Content, err = flags.ListPendingContent(ctx); err != nil {
			return err
		}
		q.Injections, err = flags.ListPendingInjections(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func loadSlot(ctx context.Context, tx db.DBTX, principal domain.Principal, slotID string) (*domain.ItinerarySlot, error) {
	slot, err := repository.NewSQLiteSlotRepo(tx).GetByID(ctx, slotID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("slot "+slotID+" not found", err)
	}
	if err != nil {
		return nil, err
	}
	if err := principal.Require(domain.ScopeFlag, slot.TripID); err != nil {
		return nil, err
	}
	return slot, nil
}

// cleanNote bounds the note and drops it when it matches an injection
// pattern.
func cleanNote(note string) string {
	if prompt.Screen(note) != "" {
		return ""
	}
	if utf8.RuneCountInString(note) <= maxNoteLength {
		return note
	}
	return string([]rune(note)[:maxNoteLength])
}
