// Package wageclient is the remote wage-computation collaborator: a JSON-over-HTTP
// client guarded by a circuit breaker.
package wageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/wage"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrUnavailable = errors.New("wage service unavailable")
	ErrBadResponse = errors.New("wage service returned an invalid response")
)

type Options struct {
	Timeout             time.Duration
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
	// Credentials, when set, authenticates every call with a client-credentials token.
	Credentials *clientcredentials.Config
}

func DefaultOptions() Options {
	return Options{
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = DefaultOptions().ConsecutiveFailures
	}

	settings := gobreaker.Settings{
		Name:        "wage-service",
		MaxRequests: opts.HalfOpenRequests,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	httpClient := &http.Client{Timeout: opts.Timeout}
	if opts.Credentials != nil {
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = opts.Credentials.Client(tokenCtx)
		httpClient.Timeout = opts.Timeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type employeeBody struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Category      string          `json:"category"`
	Nationality   string          `json:"nationality"`
	Department    string          `json:"department,omitempty"`
	BranchID      *string         `json:"branch_id,omitempty"`
	HireDate      time.Time       `json:"hire_date"`
	BaseSalary    decimal.Decimal `json:"base_salary"`
	InsurableBase decimal.Decimal `json:"insurable_base"`
}

type computeBody struct {
	CompanyID   string          `json:"company_id"`
	PeriodID    string          `json:"period_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Employee    employeeBody    `json:"employee"`
	Statutory   json.RawMessage `json:"statutory"`
}

type lineBody struct {
	ComponentID   *string          `json:"component_id"`
	ComponentCode string           `json:"component_code"`
	Description   string           `json:"description"`
	Amount        decimal.Decimal  `json:"amount"`
	Sign          payrun.Sign      `json:"sign"`
	Source        payrun.Source    `json:"source"`
	Units         *decimal.Decimal `json:"units,omitempty"`
	Rate          *decimal.Decimal `json:"rate,omitempty"`
}

type computeResponse struct {
	Lines                []lineBody      `json:"lines"`
	GrossSalary          decimal.Decimal `json:"gross_salary"`
	TotalDeductions      decimal.Decimal `json:"total_deductions"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
}

// Compute implements wage.Calculator by POSTing to {baseURL}/compute.
func (c *Client) Compute(ctx context.Context, req wage.Request) (wage.Result, error) {
	snap, err := json.Marshal(req.Statutory)
	if err != nil {
		return wage.Result{}, fmt.Errorf("failed to encode statutory snapshot: %w", err)
	}
	body, err := json.Marshal(computeBody{
		CompanyID:   req.CompanyID,
		PeriodID:    req.PeriodID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Employee: employeeBody{
			ID:            req.Employee.ID,
			Code:          req.Employee.Code,
			Category:      req.Employee.Category,
			Nationality:   req.Employee.Nationality,
			Department:    req.Employee.Department,
			BranchID:      req.Employee.BranchID,
			HireDate:      req.Employee.HireDate,
			BaseSalary:    req.Employee.Salary.BaseSalary,
			InsurableBase: req.Employee.InsurableBase(),
		},
		Statutory: snap,
	})
	if err != nil {
		return wage.Result{}, fmt.Errorf("failed to encode wage request: %w", err)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return wage.Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return wage.Result{}, err
	}
	resp := out.(computeResponse)

	res := wage.Result{
		Lines:                make([]payrun.Line, 0, len(resp.Lines)),
		Gross:                resp.GrossSalary,
		TotalDeductions:      resp.TotalDeductions,
		EmployerContribution: resp.EmployerContribution,
	}
	for i, l := range resp.Lines {
		if l.Amount.IsNegative() || (l.Sign != payrun.Earning && l.Sign != payrun.Deduction) {
			return wage.Result{}, fmt.Errorf("%w: line %d (%s)", ErrBadResponse, i, l.ComponentCode)
		}
		src := l.Source
		if !src.Valid() {
			src = payrun.SourceSmartPolicy
		}
		res.Lines = append(res.Lines, payrun.Line{
			ComponentID:   l.ComponentID,
			ComponentCode: l.ComponentCode,
			Description:   l.Description,
			Amount:        l.Amount,
			Sign:          l.Sign,
			Source:        src,
			Units:         l.Units,
			Rate:          l.Rate,
			Order:         i,
		})
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, body []byte) (computeResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compute", bytes.NewReader(body))
	if err != nil {
		return computeResponse{}, fmt.Errorf("failed to build wage request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return computeResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return computeResponse{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return computeResponse{}, fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out computeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return computeResponse{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return out, nil
}
