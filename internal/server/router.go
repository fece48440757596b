package server

import (
	"context"
	"net/http"

	"github.com/andinosoft/contracting/internal/gate"
	"github.com/andinosoft/contracting/internal/handlers"
	"github.com/andinosoft/contracting/internal/httpx"
	"github.com/andinosoft/contracting/internal/logger"
	"github.com/andinosoft/contracting/internal/models"
	"github.com/andinosoft/contracting/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes, services and
// middlewares wired.
func New(db *gorm.DB) http.Handler {
	log := logger.WithComponent("http")

	revisions := services.NewRevisionService()
	audit := services.NewAuditService(db, logger.WithComponent("audit"))
	status := services.NewStatusService(db, revisions, audit, logger.WithComponent("status"))
	items := services.NewInvoiceItemService(db, revisions, audit)
	approvals := services.NewApprovalService(db, status, revisions, audit, logger.WithComponent("approvals"))
	payments := services.NewPaymentService(db, status, revisions, audit, logger.WithComponent("payments"))
	schedules := services.NewScheduleService(db, status, items, revisions, audit, logger.WithComponent("schedules"))

	g := newGate(db)

	ch := handlers.NewContractHandler(db, status, g)
	ih := handlers.NewInvoiceHandler(db, status, items, g)
	ah := handlers.NewApprovalHandler(db, approvals, g)
	ph := handlers.NewPaymentHandler(db, payments, status, g)
	sh := handlers.NewScheduleHandler(db, schedules, g)
	oh := handlers.NewOrganizationHandler(db, g)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Actor-ID", "X-Tenant-ID"},
		MaxAge:         300,
	}))
	r.Use(identity)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/organizations", func(r chi.Router) {
		r.Get("/", oh.List)
		r.Post("/", oh.Create)
		r.Get("/{id}", oh.Get)
		r.Get("/{id}/users", oh.ListUsers)
		r.Post("/{id}/users", oh.CreateUser)
	})

	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", ch.List)
		r.Post("/", ch.Create)
		r.Get("/{id}", ch.Get)
		r.Put("/{id}", ch.Update)
		r.Post("/{id}/status", ch.Transition)
		r.Get("/{id}/status/history", ch.History)
		r.Get("/{id}/revisions", ch.Revisions)
	})

	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", ih.List)
		r.Post("/", ih.Create)
		r.Get("/{id}", ih.Get)
		r.Post("/{id}/status", ih.Transition)
		r.Get("/{id}/status/history", ih.History)
		r.Get("/{id}/status/current", ih.Current)

		r.Post("/{id}/items", ih.AddItem)
		r.Put("/{id}/items/{itemID}", ih.UpdateItem)
		r.Delete("/{id}/items/{itemID}", ih.DeleteItem)

		r.Get("/{id}/approvals", ah.List)
		r.Post("/{id}/approvals", ah.Assign)

		r.Get("/{id}/payments", ph.List)
		r.Post("/{id}/payments", ph.Record)
		r.Get("/{id}/payment-schedules", ph.ListPlan)
		r.Post("/{id}/payment-schedules", ph.CreatePlan)
	})

	r.Get("/approvals/pending", ah.Pending)
	r.Post("/approvals/{id}/resolve", ah.Resolve)

	r.Route("/payments", func(r chi.Router) {
		r.Delete("/{id}", ph.Delete)
		r.Post("/{id}/status", ph.Transition)
		r.Post("/{id}/verify", ph.Verify)
		r.Post("/{id}/reject", ph.Reject)
	})

	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", sh.List)
		r.Post("/", sh.Create)
		r.Post("/process", sh.Run)
		r.Post("/{id}/generate", sh.Generate)
		r.Post("/{id}/deactivate", sh.Deactivate)
	})

	return r
}

// newGate registers the per-resource authorization policies. Everyone with a
// resolved identity may view; mutating actions require an active user, and
// the privileged actions are restricted by role name.
func newGate(db *gorm.DB) *gate.Gate[uint] {
	g := gate.New[uint]()

	loadRole := func(ctx context.Context, userID uint) string {
		var user models.User
		if err := db.WithContext(ctx).Preload("Role").First(&user, userID).Error; err != nil {
			return ""
		}
		if !user.IsActive || user.Role == nil {
			return ""
		}
		return user.Role.Name
	}

	standard := gate.PolicyFunc[uint](func(ctx context.Context, userID uint, action gate.Action, _ any) bool {
		role := loadRole(ctx, userID)
		if role == "" {
			return false
		}
		switch action {
		case gate.ActionView, gate.ActionCreate, gate.ActionUpdate:
			return true
		case gate.ActionDelete, gate.ActionTransition:
			return role == "admin" || role == "supervisor" || role == "approver" || role == "user"
		default:
			return role == "admin" || role == "supervisor" || role == "approver"
		}
	})
	privileged := gate.PolicyFunc[uint](func(ctx context.Context, userID uint, action gate.Action, _ any) bool {
		role := loadRole(ctx, userID)
		switch action {
		case gate.ActionView:
			return role != ""
		case gate.ActionApprove, gate.ActionVerify:
			return role == "admin" || role == "supervisor" || role == "approver"
		default:
			return role == "admin" || role == "supervisor"
		}
	})
	adminOnly := gate.PolicyFunc[uint](func(ctx context.Context, userID uint, action gate.Action, _ any) bool {
		role := loadRole(ctx, userID)
		if action == gate.ActionView {
			return role != ""
		}
		return role == "admin"
	})

	g.Register("contract", standard)
	g.Register("invoice", standard)
	g.Register("schedule", standard)
	g.Register("approval", privileged)
	g.Register("payment", privileged)
	g.Register("organization", adminOnly)
	g.Register("user", adminOnly)
	return g
}
