package domain

type TripStatus string

const (
	TripPlanned   TripStatus = "planned"
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

type SlotStatus string

const (
	SlotProposed  SlotStatus = "proposed"
	SlotConfirmed SlotStatus = "confirmed"
	SlotCompleted SlotStatus = "completed"
	SlotSkipped   SlotStatus = "skipped"
)

// TriggerType names the condition that raised a pivot.
type TriggerType string

const (
	TriggerWeather     TriggerType = "weather"
	TriggerClosure     TriggerType = "closure"
	TriggerOverrun     TriggerType = "overrun"
	TriggerMood        TriggerType = "mood"
	TriggerFreeText    TriggerType = "free_text"
	TriggerDayOverflow TriggerType = "day_overflow"
)

// ValidTriggerTypes is the canonical set of accepted trigger type strings.
var ValidTriggerTypes = map[TriggerType]bool{
	TriggerWeather: true, TriggerClosure: true, TriggerOverrun: true,
	TriggerMood: true, TriggerFreeText: true, TriggerDayOverflow: true,
}

type PivotStatus string

const (
	PivotProposed PivotStatus = "proposed"
	PivotAccepted PivotStatus = "accepted"
	PivotRejected PivotStatus = "rejected"
	PivotExpired  PivotStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed.
func (s PivotStatus) IsTerminal() bool {
	return s == PivotAccepted || s == PivotRejected || s == PivotExpired
}

type CandidateKind string

const (
	CandidateSwap      CandidateKind = "swap"
	CandidateMicroStop CandidateKind = "micro_stop"
	CandidateExtend    CandidateKind = "extend"
	CandidateMoveDay   CandidateKind = "move_day"
)

type ReviewStatus string

const (
	ReviewNone     ReviewStatus = "none"
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
)

type SignalKind string

const (
	SignalPivotAccepted SignalKind = "pivot_accepted"
	SignalPivotRejected SignalKind = "pivot_rejected"
	SignalPivotExpired  SignalKind = "pivot_expired"
	SignalWrongForMe    SignalKind = "wrong_for_me"
)

// Signal weights recorded for training. Expiry is exposure without an
// explicit judgment, so it is weaker than a rejection.
const (
	WeightAccepted   = 1.0
	WeightRejected   = -1.0
	WeightExpired    = -0.3
	WeightWrongForMe = -1.0
)

// Intention confidences. Acceptance among offered options is a weaker
// statement than an explicit report.
const (
	ConfidenceExplicit = 1.0
	ConfidenceAccepted = 0.8
)

type SignalSource string

const (
	SourceExplicit SignalSource = "explicit"
	SourceInferred SignalSource = "inferred"
)

type AuditKind string

const (
	AuditTriggerEvaluated   AuditKind = "trigger_evaluated"
	AuditNoAction           AuditKind = "no_action"
	AuditDepthCapped        AuditKind = "depth_capped"
	AuditParseAttempt       AuditKind = "parse_attempt"
	AuditInjectionFlagged   AuditKind = "injection_flagged"
	AuditPivotExpired       AuditKind = "pivot_expired"
	AuditCooldownSuppressed AuditKind = "cooldown_suppressed"
)

// OutdoorTag marks activity nodes exposed to the weather.
const (
	OutdoorTag = "outdoor"
	IndoorTag  = "indoor"
)
