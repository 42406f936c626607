package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/property-costs/pkg/costs"
	"github.com/iwvelando/property-costs/pkg/snapshot"
	"github.com/iwvelando/property-costs/pkg/testutil"
	"go.uber.org/zap"
)

type testEnv struct {
	handler   http.Handler
	adapter   *snapshot.Adapter
	persister *snapshot.Persister
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	adapter := snapshot.NewAdapter(snapshot.NewMemoryStore(), zap.NewNop())
	persister := snapshot.NewPersister(adapter, zap.NewNop(), time.Second)
	t.Cleanup(persister.Close)

	return testEnv{
		handler: NewHandler(zap.NewNop(), 1024, "1.2.3", Dependencies{
			Adapter:   adapter,
			Persister: persister,
		}),
		adapter:   adapter,
		persister: persister,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHandleVersion(t *testing.T) {
	env := newTestEnv(t)

	rr := do(t, env.handler, http.MethodGet, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	decode(t, rr, &resp)
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}

	rr = do(t, env.handler, http.MethodPost, "/api/version", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleVersionDefault(t *testing.T) {
	h := NewHandler(nil, 0, "  ", Dependencies{})
	rr := do(t, h, http.MethodGet, "/api/version", nil)
	var resp map[string]string
	decode(t, rr, &resp)
	if resp["version"] != "dev" {
		t.Fatalf("expected version dev, got %q", resp["version"])
	}
}

func TestHandleCalculate(t *testing.T) {
	env := newTestEnv(t)

	state := costs.SeededState(1500000)
	state.LoanAmount = 1350000

	rr := do(t, env.handler, http.MethodPost, "/api/calculate", state)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	decode(t, rr, &resp)
	if resp.Breakdown.OnceOff.TransferDuty != 12000 {
		t.Errorf("expected transfer duty 12000, got %v", resp.Breakdown.OnceOff.TransferDuty)
	}
	if resp.Breakdown.Monthly.BondRepayment != 14630 {
		t.Errorf("expected repayment 14630, got %v", resp.Breakdown.Monthly.BondRepayment)
	}
	if resp.Summary.TotalRepaid != 14630*240 {
		t.Errorf("expected total repaid %v, got %v", 14630*240, resp.Summary.TotalRepaid)
	}
	if len(resp.Layout.Sections) != 4 {
		t.Errorf("expected 4 sections, got %d", len(resp.Layout.Sections))
	}
	if cash := testutil.FindLine(resp.Layout, "cashRequired"); cash == nil || cash.Amount != 255263 {
		t.Errorf("expected cash required 255263, got %+v", cash)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", resp.Warnings)
	}
}

func TestHandleCalculateWarningsAndErrors(t *testing.T) {
	env := newTestEnv(t)

	state := costs.SeededState(1000000)
	state.LoanTermYears = 0
	rr := do(t, env.handler, http.MethodPost, "/api/calculate", state)
	var resp calculateResponse
	decode(t, rr, &resp)
	if resp.Breakdown.Monthly.BondRepayment != 0 || len(resp.Warnings) == 0 {
		t.Errorf("expected zero repayment with a warning, got %+v", resp)
	}

	rr = do(t, env.handler, http.MethodPost, "/api/calculate", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for malformed JSON, got %d", rr.Code)
	}

	rr = do(t, env.handler, http.MethodPost, "/api/calculate", `{"askingPrice":`+strings.Repeat("1", 2048)+`}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413 for an oversized body, got %d", rr.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rr := do(t, env.handler, http.MethodGet, "/api/sessions/42?price=1500000", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var opened sessionResponse
	decode(t, rr, &opened)
	if opened.ID != "42" || opened.State.AskingPrice != 1500000 || opened.State.LoanAmount != 1500000 {
		t.Fatalf("unexpected opened session %+v", opened.State)
	}

	rr = do(t, env.handler, http.MethodPost, "/api/sessions/42/fields", fieldRequest{Field: "loanAmount", Value: "1 350 000"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var update updateResponse
	decode(t, rr, &update)
	if update.State.LoanAmount != 1350000 || update.Breakdown.Monthly.BondRepayment != 14630 {
		t.Fatalf("unexpected update %+v", update.Update)
	}
	if update.Layout != nil {
		t.Errorf("value edits should not send a layout")
	}

	// The typed loan amount survives a price change.
	rr = do(t, env.handler, http.MethodPost, "/api/sessions/42/fields", fieldRequest{Field: "askingPrice", Value: "2000000"})
	decode(t, rr, &update)
	if update.State.LoanAmount != 1350000 {
		t.Fatalf("loan amount was overwritten: %v", update.State.LoanAmount)
	}

	rr = do(t, env.handler, http.MethodPost, "/api/sessions/42/fields", fieldRequest{Field: "isBonded", Value: "false"})
	update = updateResponse{}
	decode(t, rr, &update)
	if !update.Structural || update.Layout == nil {
		t.Fatalf("toggling the bond should send a new layout")
	}
	if _, ok := update.Layout.Section("bond"); ok {
		t.Errorf("bond section should be hidden after switching to cash")
	}

	rr = do(t, env.handler, http.MethodPost, "/api/sessions/42/sections/monthly", nil)
	update = updateResponse{}
	decode(t, rr, &update)
	if update.State.SectionsExpanded["monthly"] {
		t.Errorf("monthly section should be collapsed")
	}

	env.persister.Flush()
	saved, err := env.adapter.Load(context.Background(), snapshot.Key("42"))
	if err != nil {
		t.Fatalf("expected a saved snapshot: %v", err)
	}
	if saved.IsBonded || saved.AskingPrice != 2000000 || saved.SectionsExpanded["monthly"] {
		t.Errorf("unexpected saved state %+v", saved)
	}
}

func TestSessionRestoredFromSnapshot(t *testing.T) {
	env := newTestEnv(t)

	stored := costs.SeededState(900000)
	stored.MonthlyLevies = 1500
	if err := env.adapter.Save(context.Background(), snapshot.Key("restored"), stored); err != nil {
		t.Fatalf("failed to seed snapshot: %v", err)
	}

	rr := do(t, env.handler, http.MethodGet, "/api/sessions/restored?price=5000000", nil)
	var resp sessionResponse
	decode(t, rr, &resp)
	if resp.State.AskingPrice != 900000 || resp.State.MonthlyLevies != 1500 {
		t.Fatalf("expected the stored state, got %+v", resp.State)
	}
}

func TestSessionErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := do(t, env.handler, http.MethodPost, "/api/sessions/1/fields", fieldRequest{Field: "colour", Value: "blue"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown field, got %d", rr.Code)
	}

	rr = do(t, env.handler, http.MethodPost, "/api/sessions/1/sections/garden", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown section, got %d", rr.Code)
	}

	rr = do(t, env.handler, http.MethodPost, "/api/sessions/1/fields", "[]")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for a malformed body, got %d", rr.Code)
	}

	rr = do(t, env.handler, http.MethodGet, "/api/standalone/not-a-uuid", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for an invalid standalone id, got %d", rr.Code)
	}
}

func TestStandaloneSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)

	rr := do(t, env.handler, http.MethodPost, "/api/standalone?price=750000", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var standalone sessionResponse
	decode(t, rr, &standalone)
	if standalone.ID == "" || standalone.State.AskingPrice != 750000 {
		t.Fatalf("unexpected standalone session %+v", standalone)
	}

	do(t, env.handler, http.MethodGet, "/api/sessions/7?price=1500000", nil)
	do(t, env.handler, http.MethodPost, "/api/standalone/"+standalone.ID+"/fields", fieldRequest{Field: "monthlyLevies", Value: "900"})

	rr = do(t, env.handler, http.MethodGet, "/api/sessions/7", nil)
	var inline sessionResponse
	decode(t, rr, &inline)
	if inline.State.MonthlyLevies != 0 || inline.State.AskingPrice != 1500000 {
		t.Errorf("inline calculator picked up standalone edits: %+v", inline.State)
	}

	rr = do(t, env.handler, http.MethodGet, "/api/standalone/"+standalone.ID, nil)
	decode(t, rr, &standalone)
	if standalone.State.MonthlyLevies != 900 {
		t.Errorf("standalone edit was lost: %+v", standalone.State)
	}

	env.persister.Flush()
	if _, err := env.adapter.Load(context.Background(), "calculator_standalone_"+standalone.ID); err != nil {
		t.Errorf("expected the standalone snapshot to be saved: %v", err)
	}
}

func TestHandleSchedule(t *testing.T) {
	env := newTestEnv(t)

	do(t, env.handler, http.MethodGet, "/api/sessions/99?price=1500000", nil)
	do(t, env.handler, http.MethodPost, "/api/sessions/99/fields", fieldRequest{Field: "loanAmount", Value: "1350000"})

	rr := do(t, env.handler, http.MethodGet, "/api/sessions/99/schedule", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp scheduleResponse
	decode(t, rr, &resp)
	if resp.ID != "99" || len(resp.Schedule) != 20 {
		t.Fatalf("expected a 20 year schedule, got %d years", len(resp.Schedule))
	}
	if resp.Schedule[19].RemainingPrincipal != 0 {
		t.Errorf("final balance = %v, expected 0", resp.Schedule[19].RemainingPrincipal)
	}
	if resp.Summary.TotalRepaid != 14630*240 {
		t.Errorf("expected total repaid %v, got %v", 14630*240, resp.Summary.TotalRepaid)
	}

	do(t, env.handler, http.MethodPost, "/api/sessions/99/fields", fieldRequest{Field: "isBonded", Value: "false"})
	rr = do(t, env.handler, http.MethodGet, "/api/sessions/99/schedule", nil)
	resp = scheduleResponse{}
	decode(t, rr, &resp)
	if len(resp.Schedule) != 0 {
		t.Errorf("cash purchase should have no schedule, got %d years", len(resp.Schedule))
	}
}

func TestPropertyIDsCannotReachStandaloneCalculators(t *testing.T) {
	env := newTestEnv(t)

	rr := do(t, env.handler, http.MethodPost, "/api/standalone?price=900000", nil)
	var standalone sessionResponse
	decode(t, rr, &standalone)

	rr = do(t, env.handler, http.MethodPost, "/api/sessions/standalone_"+standalone.ID+"/fields",
		fieldRequest{Field: "askingPrice", Value: "4000000"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for a reserved property id, got %d", rr.Code)
	}
	rr = do(t, env.handler, http.MethodGet, "/api/sessions/standalone_"+standalone.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for a reserved property id, got %d", rr.Code)
	}

	rr = do(t, env.handler, http.MethodGet, "/api/standalone/"+standalone.ID, nil)
	decode(t, rr, &standalone)
	if standalone.State.AskingPrice != 900000 {
		t.Errorf("standalone calculator changed through the property route: %+v", standalone.State)
	}
}

// gatedStore blocks reads of one key until released.
type gatedStore struct {
	*snapshot.MemoryStore
	key     string
	reached chan struct{}
	release chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == g.key {
		close(g.reached)
		<-g.release
	}
	return g.MemoryStore.Get(ctx, key)
}

func TestSlowStoreReadDoesNotBlockOtherCalculators(t *testing.T) {
	store := &gatedStore{
		MemoryStore: snapshot.NewMemoryStore(),
		key:         snapshot.Key("slow"),
		reached:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	h := NewHandler(zap.NewNop(), 1024, "", Dependencies{
		Adapter: snapshot.NewAdapter(store, zap.NewNop()),
	})

	slowDone := make(chan int, 1)
	go func() {
		rr := do(t, h, http.MethodGet, "/api/sessions/slow?price=1000000", nil)
		slowDone <- rr.Code
	}()
	<-store.reached

	fastDone := make(chan int, 1)
	go func() {
		rr := do(t, h, http.MethodGet, "/api/sessions/fast?price=2000000", nil)
		fastDone <- rr.Code
	}()

	select {
	case code := <-fastDone:
		if code != http.StatusOK {
			t.Errorf("expected status 200, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Error("a slow snapshot read blocked another calculator")
	}

	close(store.release)
	if code := <-slowDone; code != http.StatusOK {
		t.Errorf("expected status 200 for the slow calculator, got %d", code)
	}
}
