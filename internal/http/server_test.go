package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"garage/internal/auth"
	"garage/internal/core"
	"garage/internal/log"
	"garage/internal/services"
	"garage/internal/store/memory"
)

const testUser = "user-1"

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) *testEnv {
	t.Helper()
	st := memory.NewWithClock(func() time.Time { return testNow })
	dash := services.NewDashboardService(st, nil)
	deps := Dependencies{
		Logger:        log.New(log.Config{Level: slog.LevelError, Format: "json", Component: log.ComponentHTTP, Output: io.Discard}),
		Projects:      services.NewProjectService(st, dash),
		Expenses:      services.NewExpenseService(st, nil, dash),
		Dashboard:     dash,
		DefaultUserID: testUser,
		RateLimitRPM:  100,
		Ready:         func(context.Context) error { return nil },
		Now:           func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := NewServer(":0", deps)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.rateLimiter.Stop)
	return &testEnv{srv: srv, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createProject(t *testing.T, p core.Project) core.Project {
	t.Helper()
	p.UserID = testUser
	created, err := e.store.CreateProject(context.Background(), p.Normalize())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return created
}

func TestNewServerRejectsBadTrustedProxy(t *testing.T) {
	deps := Dependencies{
		Logger:         log.New(log.Config{Level: slog.LevelError, Format: "json", Output: io.Discard}),
		TrustedProxies: []string{"192.0.2.0/99"},
	}
	if srv, err := NewServer(":0", deps); err == nil {
		srv.rateLimiter.Stop()
		t.Fatalf("expected an error for a malformed trusted proxy")
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	env := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := env.do(t, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	rr := env.do(t, http.MethodGet, "/metrics", nil, false)
	if !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Fatalf("metrics body: %s", rr.Body.String())
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	env := newTestServer(t, func(d *Dependencies) {
		d.Ready = func(context.Context) error { return context.DeadlineExceeded }
	})
	rr := env.do(t, http.MethodGet, "/readyz", nil, false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestIndexListsProjects(t *testing.T) {
	env := newTestServer(t, nil)
	env.createProject(t, core.Project{Name: "Golf Mk2", Type: core.TypeCarRebuild, BuyPrice: core.MustMoney("3500")})
	env.createProject(t, core.Project{Name: "Oak table", Type: "Furniture", Status: core.StatusCompleted,
		BuyPrice: core.MustMoney("100"), SoldPrice: core.MustMoney("250")})

	rr := env.do(t, http.MethodGet, "/", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Golf Mk2", "Oak table", "Completed", "€3.600,00"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}

	rr = env.do(t, http.MethodGet, "/ui/dashboard", nil, true)
	if rr.Code != http.StatusOK || strings.Contains(rr.Body.String(), "<html") {
		t.Fatalf("partial status=%d", rr.Code)
	}
}

func TestProjectDetail(t *testing.T) {
	env := newTestServer(t, nil)
	p := env.createProject(t, core.Project{Name: "Golf Mk2", Type: core.TypeCarRebuild})
	if _, err := env.store.AddExpense(context.Background(), testUser, core.Expense{
		ProjectID: p.ID, Description: "Brake pads", Category: "Repair", Amount: core.MustMoney("89.90"), Date: testNow,
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	rr := env.do(t, http.MethodGet, "/projects/1", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Brake pads", "€89,90", "<path d=\"M", "insurance_date"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail missing %q", want)
		}
	}

	tests := []struct {
		path string
		want int
	}{
		{"/projects/99", http.StatusNotFound},
		{"/projects/abc", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rr := env.do(t, http.MethodGet, tt.path, nil, false); rr.Code != tt.want {
			t.Errorf("%s status=%d, want %d", tt.path, rr.Code, tt.want)
		}
	}
}

func TestCreateProject(t *testing.T) {
	env := newTestServer(t, nil)
	form := url.Values{"name": {"Golf"}, "type": {core.TypeCarRebuild}, "buy_price": {"3500"}, "vin": {"wvw1"}}

	rr := env.do(t, http.MethodPost, "/projects", form, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, part := range []string{`"project:changed":{"id":1}`, `"form:reset"`, `"show-notification"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %s: %s", part, trigger)
		}
	}

	got, err := env.store.GetProject(context.Background(), testUser, 1)
	if err != nil || got.Car == nil || got.Car.VIN != "WVW1" || got.Status != core.StatusActive {
		t.Fatalf("stored project: %+v %v", got, err)
	}

	rr = env.do(t, http.MethodPost, "/projects", url.Values{"name": {"Rig"}, "type": {"PC Build"}}, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/projects/2" {
		t.Fatalf("plain post: status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestServer(t, nil)
	tests := []struct {
		name string
		form url.Values
	}{
		{"empty name", url.Values{"type": {"PC Build"}}},
		{"empty type", url.Values{"name": {"Rig"}}},
		{"bad price", url.Values{"name": {"Rig"}, "type": {"PC Build"}, "buy_price": {"abc"}}},
		{"bad status", url.Values{"name": {"Rig"}, "type": {"PC Build"}, "status": {"sold"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/projects", tt.form, true)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestExpenseLifecycleAndSummary(t *testing.T) {
	env := newTestServer(t, nil)
	env.createProject(t, core.Project{Name: "Golf", Type: core.TypeCarRebuild, BuyPrice: core.MustMoney("1000")})

	for _, amount := range []string{"100", "20,50"} {
		rr := env.do(t, http.MethodPost, "/projects/1/expenses",
			url.Values{"description": {"Part"}, "category": {"Repair"}, "amount": {amount}, "date": {"2025-05-02"}}, true)
		if rr.Code != http.StatusCreated {
			t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := env.do(t, http.MethodGet, "/api/projects/1/summary", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["total_expenses"] != "120.5" || got["total_investment"] != "1120.5" || got["reminder_status"] != "none" {
		t.Fatalf("summary: %v", got)
	}

	rr = env.do(t, http.MethodPost, "/expenses/2",
		url.Values{"project_id": {"1"}, "description": {"Part"}, "category": {"Repair"}, "amount": {"30"}, "date": {"2025-05-02"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/expenses/1/delete", nil, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), `"id":1`) {
		t.Fatalf("delete status=%d trigger=%s", rr.Code, rr.Header().Get("HX-Trigger"))
	}

	sum, err := env.srv.dashboard.ProjectSummary(context.Background(), testUser, 1)
	if err != nil || !sum.TotalExpenses.Equal(core.MustMoney("30")) {
		t.Fatalf("after edits: %v %v", sum.TotalExpenses, err)
	}

	if rr := env.do(t, http.MethodPost, "/expenses/1/delete", nil, true); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestExpenseValidation(t *testing.T) {
	env := newTestServer(t, nil)
	env.createProject(t, core.Project{Name: "Golf", Type: "PC Build"})

	tests := []struct {
		name string
		path string
		form url.Values
		want int
	}{
		{"zero amount", "/projects/1/expenses", url.Values{"description": {"x"}, "amount": {"0"}}, http.StatusUnprocessableEntity},
		{"missing description", "/projects/1/expenses", url.Values{"amount": {"5"}}, http.StatusUnprocessableEntity},
		{"unknown project", "/projects/9/expenses", url.Values{"description": {"x"}, "amount": {"5"}}, http.StatusNotFound},
		{"update without project", "/expenses/1", url.Values{"description": {"x"}, "amount": {"5"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(t, http.MethodPost, tt.path, tt.form, true); rr.Code != tt.want {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestCarOnlyUpdates(t *testing.T) {
	env := newTestServer(t, nil)
	env.createProject(t, core.Project{Name: "Golf", Type: core.TypeCarRebuild})
	env.createProject(t, core.Project{Name: "Rig", Type: "PC Build"})

	// The dashboard classifies reminders against the wall clock.
	soon := time.Now().AddDate(0, 0, 10).Format(core.DateLayout)
	rr := env.do(t, http.MethodPost, "/projects/1/reminders", url.Values{"insurance_date": {soon}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("reminders status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPost, "/projects/1/notes", url.Values{"notes": {"Check the gearbox"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("notes status=%d", rr.Code)
	}

	p, _ := env.store.GetProject(context.Background(), testUser, 1)
	if p.Car.InsuranceDate.String() != soon || p.Car.Notes != "Check the gearbox" {
		t.Fatalf("car details: %+v", p.Car)
	}
	sum, _ := env.srv.dashboard.ProjectSummary(context.Background(), testUser, 1)
	if sum.ReminderStatus != "warning" {
		t.Fatalf("reminder status %q", sum.ReminderStatus)
	}

	if rr := env.do(t, http.MethodPost, "/projects/2/reminders", url.Values{}, true); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non-car reminders status=%d", rr.Code)
	}
}

func TestUpdateAndDeleteProject(t *testing.T) {
	env := newTestServer(t, nil)
	env.createProject(t, core.Project{Name: "Golf", Type: "PC Build"})

	rr := env.do(t, http.MethodPost, "/projects/1",
		url.Values{"name": {"Golf GTI"}, "type": {"PC Build"}, "status": {"completed"}, "sold_price": {"900"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	p, _ := env.store.GetProject(context.Background(), testUser, 1)
	if p.Name != "Golf GTI" || !p.IsCompleted() || !p.SoldPrice.Equal(core.MustMoney("900")) {
		t.Fatalf("updated: %+v", p)
	}

	rr = env.do(t, http.MethodPost, "/projects/1/delete", nil, true)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("delete status=%d redirect=%q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
	if rr := env.do(t, http.MethodGet, "/projects/1", nil, false); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted project status=%d", rr.Code)
	}
}

func TestAuthentication(t *testing.T) {
	verifier := auth.NewVerifier("test-secret")
	env := newTestServer(t, func(d *Dependencies) {
		d.Verifier = verifier
		d.DefaultUserID = ""
	})
	env.createProject(t, core.Project{Name: "Golf", Type: "PC Build"})

	if rr := env.do(t, http.MethodGet, "/", nil, false); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d", rr.Code)
	}

	token, err := verifier.GenerateToken(testUser, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/projects/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated status=%d", rr.Code)
	}

	other, _ := verifier.GenerateToken("someone-else", time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/projects/1", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rr = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign project status=%d", rr.Code)
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	env := newTestServer(t, func(d *Dependencies) { d.RateLimitRPM = 2 })
	form := url.Values{"name": {"Rig"}, "type": {"PC Build"}}

	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodPost, "/projects", form, true); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := env.do(t, http.MethodPost, "/projects", form, true)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("status=%d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
	}

	if rr := env.do(t, http.MethodGet, "/", nil, false); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, status=%d", rr.Code)
	}
}
