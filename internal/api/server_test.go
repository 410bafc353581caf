package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/waypoint/internal/cascade"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/prompt"
	"github.com/alexanderramin/waypoint/internal/service"
	"github.com/alexanderramin/waypoint/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2026, 5, 2, 13, 30, 0, 0, time.UTC)

// fakeEngine records the last principal and returns canned results, or err
// when set.
type fakeEngine struct {
	err       error
	principal domain.Principal
	status    domain.PivotStatus
	decide    pivot.DecideRequest
	text      string
	report    trust.Report
	limit     int
}

func samplePivot() *domain.PivotEvent {
	return &domain.PivotEvent{
		ID:          "pv-1",
		TripID:      "trip-1",
		SlotID:      "slot-1",
		TriggerType: domain.TriggerWeather,
		Depth:       1,
		Status:      domain.PivotProposed,
		Candidates: []domain.Candidate{
			{Rank: 1, Kind: domain.CandidateSwap, ActivityNodeID: "museum", DurationMin: 60, StartTime: created, EndTime: created.Add(time.Hour), DayNumber: 2},
			{Rank: 2, Kind: domain.CandidateSwap, ActivityNodeID: "gallery", DurationMin: 90, StartTime: created, EndTime: created.Add(90 * time.Minute), DayNumber: 2},
		},
		CreatedAt: created,
	}
}

func (f *fakeEngine) ListPivots(_ context.Context, p domain.Principal, _ string, status domain.PivotStatus) ([]*domain.PivotEvent, error) {
	f.principal, f.status = p, status
	return []*domain.PivotEvent{samplePivot()}, f.err
}

func (f *fakeEngine) Pivot(_ context.Context, p domain.Principal, _ string) (*domain.PivotEvent, error) {
	f.principal = p
	if f.err != nil {
		return nil, f.err
	}
	return samplePivot(), nil
}

func (f *fakeEngine) Decide(_ context.Context, p domain.Principal, req pivot.DecideRequest) (*pivot.Decision, error) {
	f.principal, f.decide = p, req
	if f.err != nil {
		return nil, f.err
	}
	pv := samplePivot()
	pv.Status = domain.PivotAccepted
	target := &domain.ItinerarySlot{ID: "slot-1", DayNumber: 2, StartTime: created, EndTime: created.Add(90 * time.Minute)}
	next := &domain.ItinerarySlot{ID: "slot-2", DayNumber: 2, StartTime: created.Add(2 * time.Hour), EndTime: created.Add(3 * time.Hour)}
	return &pivot.Decision{
		Pivot: pv,
		Plan: &cascade.Plan{
			Target: target,
			Shifts: []cascade.Shift{{Slot: next}},
			Delta:  30 * time.Minute,
		},
	}, nil
}

func (f *fakeEngine) EvaluateTrip(_ context.Context, p domain.Principal, tripID string) (*service.Evaluation, error) {
	f.principal = p
	if f.err != nil {
		return nil, f.err
	}
	return &service.Evaluation{TripID: tripID, Results: []service.TriggerResult{
		{Trigger: domain.Trigger{SlotID: "slot-1", Type: domain.TriggerWeather, Reason: "adverse weather: storm"}, Outcome: service.OutcomeProposed, Pivot: samplePivot()},
		{Trigger: domain.Trigger{SlotID: "slot-3", Type: domain.TriggerClosure}, Outcome: service.OutcomeNoAction},
	}}, nil
}

func (f *fakeEngine) SubmitPrompt(_ context.Context, p domain.Principal, _ string, text string) (*service.PromptOutcome, error) {
	f.principal, f.text = p, text
	return &service.PromptOutcome{Parse: prompt.Result{Action: prompt.ActionUnclassified, Outcome: prompt.OutcomeUnclassified}}, f.err
}

func (f *fakeEngine) Flag(_ context.Context, p domain.Principal, rep trust.Report) (*trust.Outcome, error) {
	f.principal, f.report = p, rep
	if f.err != nil {
		return nil, f.err
	}
	return &trust.Outcome{Kind: rep.Kind, SlotID: rep.SlotID, NodeID: "tiles", FlagID: "flag-1"}, nil
}

func (f *fakeEngine) ReviewQueue(_ context.Context, p domain.Principal) (*trust.Queue, error) {
	f.principal = p
	if f.err != nil {
		return nil, f.err
	}
	return &trust.Queue{Content: []*domain.ContentFlag{{ID: "flag-1", ActivityNodeID: "tiles", SlotID: "slot-1"}}}, nil
}

func (f *fakeEngine) Audit(_ context.Context, p domain.Principal, _ string, limit int) ([]*domain.AuditRecord, error) {
	f.principal, f.limit = p, limit
	return []*domain.AuditRecord{{ID: "a-1", Kind: domain.AuditTriggerEvaluated, Outcome: "quiet"}}, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderScopes, "trip:read, trip:write,slot:flag")
	req.Header.Set(HeaderTripIDs, "trip-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	h := NewHandler(&fakeEngine{}, nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("waypoint_triggers_total 0\n"))
	})
	h := NewHandler(&fakeEngine{}, metrics, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "waypoint_triggers_total")
}

func TestListPivots_BuildsPrincipalFromHeaders(t *testing.T) {
	eng := &fakeEngine{}
	h := NewHandler(eng, nil, nil)

	rr := do(t, h, http.MethodGet, "/v1/trips/trip-1/pivots?status=proposed", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-1", eng.principal.UserID)
	assert.Equal(t, []domain.Scope{domain.ScopeTripRead, domain.ScopeTripWrite, domain.ScopeFlag}, eng.principal.Scopes)
	assert.Equal(t, []string{"trip-1"}, eng.principal.TripIDs)
	assert.Equal(t, domain.PivotProposed, eng.status)

	pivots := decodeBody(t, rr)["pivots"].([]any)
	require.Len(t, pivots, 1)
	first := pivots[0].(map[string]any)
	assert.Equal(t, "pv-1", first["id"])
	assert.Len(t, first["candidates"], 2)
}

func TestListPivots_UnknownStatus(t *testing.T) {
	rr := do(t, NewHandler(&fakeEngine{}, nil, nil), http.MethodGet, "/v1/trips/trip-1/pivots?status=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCandidates(t *testing.T) {
	rr := do(t, NewHandler(&fakeEngine{}, nil, nil), http.MethodGet, "/v1/pivots/pv-1/candidates", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "pv-1", body["pivot_id"])
	cands := body["candidates"].([]any)
	require.Len(t, cands, 2)
	assert.Equal(t, "gallery", cands[1].(map[string]any)["activity_node_id"])
}

func TestDecide_MapsPlan(t *testing.T) {
	eng := &fakeEngine{}
	rr := do(t, NewHandler(eng, nil, nil), http.MethodPost, "/v1/pivots/pv-1/decision", `{"accept":true,"rank":2}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pivot.DecideRequest{PivotID: "pv-1", Accept: true, Rank: 2}, eng.decide)

	body := decodeBody(t, rr)
	assert.Equal(t, float64(30), body["delta_minutes"])
	assert.Equal(t, "accepted", body["pivot"].(map[string]any)["status"])
	shifted := body["shifted"].([]any)
	require.Len(t, shifted, 1)
	assert.Equal(t, "slot-2", shifted[0].(map[string]any)["slot_id"])
	assert.Empty(t, body["follow_ups"])
}

func TestDecide_RejectsUnknownFields(t *testing.T) {
	rr := do(t, NewHandler(&fakeEngine{}, nil, nil), http.MethodPost, "/v1/pivots/pv-1/decision", `{"accept":true,"choice":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION", decodeBody(t, rr)["error"].(map[string]any)["code"])
}

func TestEvaluate(t *testing.T) {
	rr := do(t, NewHandler(&fakeEngine{}, nil, nil), http.MethodPost, "/v1/trips/trip-1/evaluate", "")

	require.Equal(t, http.StatusOK, rr.Code)
	results := decodeBody(t, rr)["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "proposed", results[0].(map[string]any)["outcome"])
	assert.Nil(t, results[1].(map[string]any)["pivot"])
}

func TestSubmitPrompt_UnusableTextHasNullPivot(t *testing.T) {
	eng := &fakeEngine{}
	rr := do(t, NewHandler(eng, nil, nil), http.MethodPost, "/v1/trips/trip-1/prompts", `{"text":"lovely day"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lovely day", eng.text)
	body := decodeBody(t, rr)
	assert.Equal(t, "unclassified", body["parse_outcome"])
	assert.Nil(t, body["pivot"])
}

func TestFlag(t *testing.T) {
	eng := &fakeEngine{}
	rr := do(t, NewHandler(eng, nil, nil), http.MethodPost, "/v1/slots/slot-1/flags", `{"kind":"wrong_information","note":"closed"}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, trust.Report{SlotID: "slot-1", Kind: trust.WrongInformation, Note: "closed"}, eng.report)
	assert.Equal(t, "flag-1", decodeBody(t, rr)["flag_id"])
}

func TestReviewQueue(t *testing.T) {
	rr := do(t, NewHandler(&fakeEngine{}, nil, nil), http.MethodGet, "/v1/admin/review-queue", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Len(t, body["content"], 1)
	assert.Empty(t, body["injections"])
}

func TestAudit_Limit(t *testing.T) {
	eng := &fakeEngine{}
	h := NewHandler(eng, nil, nil)

	rr := do(t, h, http.MethodGet, "/v1/trips/trip-1/audit", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, defaultAuditLimit, eng.limit)

	rr = do(t, h, http.MethodGet, "/v1/trips/trip-1/audit?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, eng.limit)

	rr = do(t, h, http.MethodGet, "/v1/trips/trip-1/audit?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.NewValidationError("bad rank"), http.StatusBadRequest, "VALIDATION"},
		{"forbidden", domain.NewForbiddenError("missing scope"), http.StatusForbidden, "FORBIDDEN"},
		{"not found", domain.NewNotFoundError("pivot pv-1 not found", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", domain.NewConflictError("already accepted"), http.StatusConflict, "CONFLICT"},
		{"data integrity", domain.NewDataIntegrityError("slot is locked"), http.StatusInternalServerError, "DATA_INTEGRITY"},
		{"wrapped", errors.Join(errors.New("tx"), domain.NewConflictError("raced")), http.StatusConflict, "CONFLICT"},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, NewHandler(&fakeEngine{err: tt.err}, nil, nil), http.MethodGet, "/v1/pivots/pv-1/candidates", "")

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decodeBody(t, rr)["error"].(map[string]any)["code"])
		})
	}
}

func TestErrorMapping_CapacityIsNullPivot(t *testing.T) {
	eng := &fakeEngine{err: domain.NewCapacityError("pivot depth 4 exceeds cap 3")}
	rr := do(t, NewHandler(eng, nil, nil), http.MethodPost, "/v1/pivots/pv-1/decision", `{"accept":true,"rank":1}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Contains(t, body, "pivot")
	assert.Nil(t, body["pivot"])
}

func TestAnonymousPrincipalIsEmpty(t *testing.T) {
	eng := &fakeEngine{}
	h := NewHandler(eng, nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/trips/trip-1/pivots", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, eng.principal.UserID)
	assert.Empty(t, eng.principal.Scopes)
}
