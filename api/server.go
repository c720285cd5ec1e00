/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/login                 Session creation (public)
  /api/health                Liveness probe (public)
  /api/school-years/*        Academic years
  /api/classrooms/*          Classrooms and occupancy
  /api/students/*            Student registry
  /api/enrollments/*         Enrollment
  /api/concepts/*            Charge concepts
  /api/plans/*               Payment plans and schedules
  /api/installments/*        Installment settlement
  /api/payments/*            Receipt ledger
  /api/requirements/*        Classroom supplies
  /api/materials/*           Stock materials and movements
  /api/assets/*              Fixed assets and maintenance
  /api/reports/*             Dashboard and projections

  Everything except /api/login and /api/health sits behind the JWT
  middleware.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Login and the token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/login", h.Login)
		r.Get("/health", h.Health)

		// Everything else requires a valid token
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Route("/school-years", func(r chi.Router) {
				r.Get("/", h.ListSchoolYears)
				r.Post("/", h.CreateSchoolYear)
				r.Put("/{id}", h.UpdateSchoolYear)
			})

			r.Route("/classrooms", func(r chi.Router) {
				r.Get("/", h.ListClassrooms)
				r.Post("/", h.CreateClassroom)
				r.Put("/{id}", h.UpdateClassroom)
			})

			r.Route("/students", func(r chi.Router) {
				r.Get("/", h.ListStudents)
				r.Post("/", h.CreateStudent)
				r.Get("/{id}", h.GetStudent)
				r.Put("/{id}", h.UpdateStudent)
				r.Delete("/{id}", h.DeactivateStudent)
			})

			r.Route("/enrollments", func(r chi.Router) {
				r.Get("/", h.ListEnrollments)
				r.Post("/", h.Enroll)
			})

			r.Route("/concepts", func(r chi.Router) {
				r.Get("/", h.ListConcepts)
				r.Post("/", h.CreateConcept)
			})

			r.Route("/plans", func(r chi.Router) {
				r.Get("/", h.ListPlans)
				r.Post("/", h.CreatePlan)
				r.Get("/{id}/installments", h.ListPlanInstallments)
			})

			r.Route("/installments", func(r chi.Router) {
				r.Post("/{id}/pay", h.PayInstallment)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", h.ListPayments)
				r.Post("/", h.CreatePayment)
			})

			r.Route("/requirements", func(r chi.Router) {
				r.Get("/", h.ListRequirements)
				r.Post("/", h.CreateRequirement)
				r.Get("/{id}/deliveries", h.ListDeliveries)
				r.Post("/{id}/deliveries", h.CreateDelivery)
			})

			r.Route("/materials", func(r chi.Router) {
				r.Get("/", h.ListMaterials)
				r.Post("/", h.CreateMaterial)
				r.Get("/{id}/movements", h.ListMovements)
				r.Post("/{id}/movements", h.RegisterMovement)
			})

			r.Route("/assets", func(r chi.Router) {
				r.Get("/", h.ListAssets)
				r.Post("/", h.CreateAsset)
				r.Get("/{id}/maintenance", h.ListMaintenance)
				r.Post("/{id}/maintenance", h.CreateMaintenance)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/dashboard", h.Dashboard)
				r.Get("/payments", h.PaymentReport)
				r.Get("/overdue", h.OverdueReport)
				r.Get("/low-stock", h.LowStockReport)
			})
		})
	})

	return r
}
