package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rules"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	auditsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/audit"
	debtsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/debt"
	ledgersvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/ledger"
	payrunsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/payrun"
	statutorysvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/statutory"
	validationsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/validation"
	wagesvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/wage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalItems int64 `json:"total_items"`
	} `json:"meta"`
}

type testServer struct {
	t      *testing.T
	server *httptest.Server
	jwt    jwt.Service
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	store.AddPeriod(payrun.Period{
		ID: "p-1", CompanyID: "co-1", Year: 2026, Month: 1,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Status:    payrun.PeriodOpen,
	})
	store.AddStatutoryConfig(statutory.Config{
		ID: "cfg-1", CompanyID: "co-1", Version: 1,
		EmployeeRate: decimal.NewFromInt(9), EmployerRate: decimal.NewFromInt(9),
		SanedRate: decimal.RequireFromString("0.75"), HazardRate: decimal.NewFromInt(2),
		MaxCapAmount: decimal.NewFromInt(45000), MinBaseSalary: decimal.NewFromInt(1500),
		NationalsOnly: true, NationalityCode: "SA",
		EffectiveDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true,
	})
	bank := "SA0380000000608010167519"
	store.AddEmployee(roster.Employee{
		ID: "e1", CompanyID: "co-1", Code: "E001", Name: "Employee One", Category: "NATIONAL",
		Nationality: "SA", BankAccount: &bank,
		Salary: roster.SalaryAssignment{BaseSalary: decimal.NewFromInt(8000)},
	})

	engine, err := rules.NewEngine()
	require.NoError(t, err)

	hub := sse.NewHub(8)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := auditsvc.NewSink(auditsvc.NewStreamWriter(auditsvc.NewLogWriter(quiet), hub), auditsvc.Config{BatchSize: 1, FlushInterval: 10 * time.Millisecond})
	t.Cleanup(func() { _ = sink.Close() })
	validationService := validationsvc.NewValidationService(store.Runs(), store.Payslips())
	ledgerService := ledgersvc.NewLedgerService(store.Ledgers(), store.Runs(), store.Payslips(), store.Components(), store, sink)
	payrunService := payrunsvc.NewPayrunService(
		payrunsvc.Repositories{
			Runs:        store.Runs(),
			Payslips:    store.Payslips(),
			Periods:     store.Periods(),
			Adjustments: store.Adjustments(),
			Components:  store.Components(),
			Debts:       store.Debts(),
			Roster:      store.Roster(),
		},
		statutorysvc.NewGateService(store.Statutory()),
		wagesvc.NewStructureCalculator(),
		validationService,
		ledgerService,
		engine,
		store,
		sink,
		payrunsvc.DefaultConfig(),
	)
	debtService := debtsvc.NewDebtService(store.Debts(), store, lock.NewLocalLocker(), sink)

	jwtService := jwt.NewJWTService(handlerTestSecret, time.Hour)
	router := NewRouter(RouterConfig{AppEnv: "test", Version: "test"}, jwtService, Handlers{
		Payrun:    NewPayrunHandler(payrunService, validationService, ledgerService),
		Debt:      NewDebtHandler(debtService),
		Statutory: NewStatutoryHandler(statutorysvc.NewGateService(store.Statutory())),
		Events:    NewEventHandler(hub),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	token, _, err := jwtService.GenerateAccessToken("hr-1", "co-1")
	require.NoError(t, err)
	return &testServer{t: t, server: srv, jwt: jwtService, token: token}
}

func (s *testServer) do(method, path string, body interface{}) (int, envelope) {
	return s.doWithToken(method, path, body, s.token)
}

func (s *testServer) doWithToken(method, path string, body interface{}, token string) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.server.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func TestRouter_Authentication(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.doWithToken(http.MethodGet, "/api/v1/payroll/runs", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.doWithToken(http.MethodGet, "/api/v1/payroll/runs", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)

	noTenant, _, err := s.jwt.GenerateAccessToken("hr-1", "")
	require.NoError(t, err)
	status, _ = s.doWithToken(http.MethodGet, "/api/v1/payroll/runs", nil, noTenant)
	assert.Equal(t, http.StatusForbidden, status)

	s.jwt.RevokeToken(s.token)
	status, _ = s.do(http.MethodGet, "/api/v1/payroll/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_RunLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodPost, "/api/v1/payroll/runs/preview", map[string]string{"period_id": "p-1"})
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodPost, "/api/v1/payroll/runs", map[string]string{"period_id": "p-1"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var detail payrun.RunDetailResponse
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Len(t, detail.Payslips, 1)
	assert.Equal(t, payrun.StatusDraft, detail.Run.Status)
	assert.Equal(t, 8000.0, detail.Totals.TotalGross)
	assert.Equal(t, 780.0, detail.Totals.TotalDeductions)
	assert.Equal(t, 7220.0, detail.Totals.TotalNet)
	runPath := "/api/v1/payroll/runs/" + detail.Run.ID

	status, env = s.do(http.MethodPost, "/api/v1/payroll/runs", map[string]string{"period_id": "p-1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, _ = s.do(http.MethodGet, runPath+"?trace=true", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodGet, runPath+"/totals", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodGet, runPath+"/validation?strict=true", nil)
	require.Equal(t, http.StatusOK, status)
	var result struct {
		CanProceed bool `json:"can_proceed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.CanProceed)

	status, _ = s.do(http.MethodGet, runPath+"/report", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodGet, "/api/v1/payroll/payslips/"+detail.Payslips[0].ID+"/validation", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodGet, runPath+"/ledger", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(http.MethodPost, runPath+"/approve", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	status, _ = s.do(http.MethodGet, runPath+"/ledger", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodPost, runPath+"/cancel", map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusConflict, status)

	status, env = s.do(http.MethodPost, runPath+"/pay", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var run payrun.RunResponse
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, payrun.StatusPaid, run.Status)

	status, env = s.do(http.MethodGet, "/api/v1/payroll/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 1, env.Meta.TotalItems)
	assert.Equal(t, 5, env.Meta.Limit)
}

func TestRouter_RequestErrors(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodPost, "/api/v1/payroll/runs", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	status, env = s.do(http.MethodPost, "/api/v1/payroll/runs", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "period_id")

	status, _ = s.do(http.MethodPost, "/api/v1/payroll/runs", map[string]string{"period_id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(http.MethodGet, "/api/v1/payroll/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(http.MethodPost, "/api/v1/payroll/runs", map[string]interface{}{
		"period_id": "p-1",
		"filters":   map[string]string{"expression": "base_salary >"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRouter_Debts(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodPost, "/api/v1/debts", map[string]string{
		"employee_id": "e1", "amount": "500", "source_type": "LOAN",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var created struct {
		ID               string  `json:"id"`
		RemainingBalance float64 `json:"remaining_balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, 500.0, created.RemainingBalance)
	debtPath := "/api/v1/debts/" + created.ID

	status, env = s.do(http.MethodPost, debtPath+"/payments", map[string]string{"amount": "200"})
	require.Equal(t, http.StatusOK, status, env.Error)

	status, _ = s.do(http.MethodPost, debtPath+"/payments", map[string]string{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPost, debtPath+"/suspend", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodPost, debtPath+"/suspend", nil)
	assert.Equal(t, http.StatusConflict, status)
	status, _ = s.do(http.MethodPost, debtPath+"/resume", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodGet, debtPath+"/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	var txs []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &txs))
	assert.Len(t, txs, 2)

	status, env = s.do(http.MethodGet, "/api/v1/employees/e1/debts/summary", nil)
	require.Equal(t, http.StatusOK, status)
	var summary struct {
		TotalActive float64 `json:"total_active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 300.0, summary.TotalActive)

	status, _ = s.do(http.MethodPost, debtPath+"/write-off", map[string]string{"reason": "uncollectable"})
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodGet, "/api/v1/debts?status=WRITTEN_OFF", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, env.Meta.TotalItems)

	status, _ = s.do(http.MethodGet, "/api/v1/debts/summary", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodGet, "/api/v1/debts/missing/transactions", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_StatutoryValidation(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodGet, "/api/v1/statutory/validation?date=2026-01-15&strict=true", nil)
	require.Equal(t, http.StatusOK, status)
	var gate statutory.GateResponse
	require.NoError(t, json.Unmarshal(env.Data, &gate))
	assert.True(t, gate.CanProceed)
	assert.Equal(t, "2026-01-15", gate.AsOf)
	require.NotNil(t, gate.Config)
	assert.Equal(t, "cfg-1", gate.Config.ID)

	status, _ = s.do(http.MethodGet, "/api/v1/statutory/validation?date=15-01-2026", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodGet, "/api/v1/statutory/validation?date=2019-06-01", nil)
	assert.Equal(t, http.StatusOK, status)
}

// nextEvent returns the name of the next server-sent event on r.
func nextEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "event: "); ok {
			return name
		}
	}
}

func TestRouter_EventStream(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.doWithToken(http.MethodGet, "/api/v1/events", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/api/v1/events?jwt="+s.token, nil)
	require.NoError(t, err)
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	require.Equal(t, "connected", nextEvent(t, reader))

	status, _ = s.do(http.MethodPost, "/api/v1/payroll/runs", map[string]string{"period_id": "p-1"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "PAYROLL_RUN_CREATED", nextEvent(t, reader))
}
