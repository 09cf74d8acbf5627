/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:    Unique ID per request for tracing
  2. RealIP:       Client address behind proxies
  3. requestLogger: zerolog logger per request (request_id), access log line
  4. Recoverer:    Panic recovery (500 instead of crash)
  5. CORS:         Cross-origin requests for frontends
  6. Authenticate: leave.Actor from JWT or development headers (/api only)

ROUTE GROUPS:
  /health               Liveness and store ping (no auth)
  /api/employees/*      Directory, balances, ledger
  /api/requests/*       Workflow
  /api/policies/*       Policy store
  /api/holidays/*       Holiday calendar
  /api/adjustments      HR balance adjustments
  /api/audit            Audit trail
  /api/reports/*        Export projections
  /api/admin/*          Year reset

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Authenticate middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/leave-engine/logger"
)

// RouterOptions configures cross-cutting concerns of the router.
type RouterOptions struct {
	// JWTSecret enables bearer authentication. Empty falls back to
	// X-Actor-* headers.
	JWTSecret string
	// CORSOrigins lists allowed origins. Empty allows local frontends only.
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role", "X-Actor-Name"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(opts.JWTSecret))

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Patch("/{id}", h.UpdateEmployee)
			r.Post("/{id}/deactivate", h.DeactivateEmployee)
			r.Post("/{id}/activate", h.ActivateEmployee)
			r.Get("/{id}/history", h.GetEmployeeHistory)
			r.Get("/{id}/balances", h.GetBalances)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Get("/{id}/ledger/verify", h.VerifyLedger)
			r.Get("/{id}/adjustments", h.GetEmployeeAdjustments)
			r.Get("/{id}/requests", h.GetEmployeeRequests)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.SubmitRequest)
			r.Get("/pending-counts", h.PendingCounts)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
		})

		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Patch("/{id}", h.UpdatePolicy)
			r.Delete("/{id}", h.DeletePolicy)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/duration", h.Duration)
			r.Get("/{id}", h.GetHoliday)
			r.Patch("/{id}", h.UpdateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Get("/adjustments", h.ListAdjustments)
		r.Post("/adjustments", h.CreateAdjustment)
		r.Get("/audit", h.QueryAudit)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/employees/{id}", h.EmployeeReport)
			r.Get("/departments/{name}", h.DepartmentReport)
			r.Get("/requests", h.RequestRows)
			r.Get("/adjustments", h.AdjustmentRows)
			r.Get("/audit", h.AuditRows)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/year-reset", h.YearReset)
		})
	})

	return r
}

// requestLogger puts a request-scoped zerolog logger into the context and
// writes one access line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithFields(r.Context(), map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
		})
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := logger.FromContext(ctx).Info()
		if status >= http.StatusInternalServerError {
			ev = logger.FromContext(ctx).Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
