package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/izzypositivetech-001/IzzyCare/internal/appointment"
	"github.com/izzypositivetech-001/IzzyCare/internal/blob"
	"github.com/izzypositivetech-001/IzzyCare/internal/guard"
	"github.com/izzypositivetech-001/IzzyCare/internal/patient"
	"github.com/izzypositivetech-001/IzzyCare/internal/view"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, params appointment.CreateParams) (*appointment.Appointment, error)
	UpdateAppointment(ctx context.Context, params appointment.UpdateParams) (*appointment.TransitionResult, error)
	GetAppointment(ctx context.Context, id string) (*appointment.Appointment, error)
	GetRecentAppointmentList(ctx context.Context) appointment.Snapshot
	ListProviders(ctx context.Context) ([]appointment.Provider, error)
}

type PatientService interface {
	CreateUser(ctx context.Context, name, email, phone string) (*patient.User, error)
	GetUser(ctx context.Context, id string) (*patient.User, error)
	GetPatient(ctx context.Context, userID string) (*patient.Patient, error)
	RegisterPatient(ctx context.Context, p patient.Patient, doc *blob.File) (*patient.Patient, error)
}

type RouterConfig struct {
	Appointments  AppointmentService
	Patients      PatientService
	Views         view.Cache
	Guard         *guard.Guard
	Health        *HealthHandler
	Metrics       http.Handler
	Logger        *slog.Logger
	ClinicName    string
	SecureCookies bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Get("/", landingHandler(cfg.Appointments, cfg.Views, cfg.ClinicName))

	r.Post("/users", createUserHandler(cfg.Patients))
	r.Get("/users/{id}", getUserHandler(cfg.Patients))

	r.Post("/patients", registerPatientHandler(cfg.Patients))
	r.Get("/patients", getPatientHandler(cfg.Patients))

	r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))

	// Transitions are staff actions and verify the admin token on every call.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Guard.RequireAuthorized)
		r.Post("/appointments/{id}/schedule", scheduleAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
	})

	r.Post("/admin/passkey", cfg.Guard.LoginHandler(cfg.SecureCookies))
	r.Post("/admin/logout", cfg.Guard.LogoutHandler)
	r.With(cfg.Guard.Middleware).Get("/admin", dashboardHandler(cfg.Appointments, cfg.Views))

	return r
}
