package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AppEnv         string
	Version        string
	AllowedOrigins []string
}

type Handlers struct {
	Payrun    PayrunHandler
	Debt      DebtHandler
	Statutory StatutoryHandler
	Events    EventHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.AppEnv != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.AppEnv),
	)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot set headers, so the stream also accepts ?jwt=.
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired(JWTService))
			r.Get("/events", h.Events.Stream)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))

			r.Route("/payroll", func(r chi.Router) {
				r.Route("/runs", func(r chi.Router) {
					r.Get("/", h.Payrun.ListRuns)
					r.Post("/", h.Payrun.CreateRun)
					r.Post("/preview", h.Payrun.PreviewRun)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.Payrun.GetRun)
						r.Get("/totals", h.Payrun.GetRunTotals)
						r.Post("/approve", h.Payrun.ApproveRun)
						r.Post("/pay", h.Payrun.PayRun)
						r.Post("/cancel", h.Payrun.CancelRun)
						r.Get("/validation", h.Payrun.ValidateRun)
						r.Get("/report", h.Payrun.RunReport)
						r.Get("/ledger", h.Payrun.GetLedger)
					})
				})
				r.Get("/payslips/{id}/validation", h.Payrun.ValidatePayslip)
			})

			r.Route("/debts", func(r chi.Router) {
				r.Get("/", h.Debt.List)
				r.Post("/", h.Debt.Create)
				r.Get("/summary", h.Debt.CompanySummary)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/transactions", h.Debt.Transactions)
					r.Post("/payments", h.Debt.MakePayment)
					r.Post("/write-off", h.Debt.WriteOff)
					r.Post("/suspend", h.Debt.Suspend)
					r.Post("/resume", h.Debt.Resume)
				})
			})
			r.Get("/employees/{id}/debts/summary", h.Debt.EmployeeSummary)

			r.Get("/statutory/validation", h.Statutory.Validate)
		})
	})
	return r
}
