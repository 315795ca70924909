package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/izzypositivetech-001/IzzyCare/internal/appointment"
	"github.com/izzypositivetech-001/IzzyCare/internal/blob"
	"github.com/izzypositivetech-001/IzzyCare/internal/patient"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
)

var validate = validator.New()

const maxUploadBytes = 10 << 20

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

// parseSchedule accepts RFC 3339 or the form's minute-precision layout (UTC).
func parseSchedule(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(appointment.ScheduleLayout, s)
}

func createUserHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		u, err := svc.CreateUser(r.Context(), req.Name, req.Email, req.Phone)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func getUserHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetUser(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func getPatientHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "missing_user_id", "userId query parameter is required")
			return
		}
		p, err := svc.GetPatient(r.Context(), userID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// registerPatientHandler takes JSON, or multipart with the details as JSON in
// the "data" field and an optional "identificationDocument" file.
func registerPatientHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterPatientRequest
		var doc *blob.File

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
			if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
				return
			}
			if err := json.Unmarshal([]byte(r.FormValue("data")), &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse data field")
				return
			}
			if err := validate.Struct(&req); err != nil {
				writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
				return
			}

			file, header, err := r.FormFile("identificationDocument")
			switch {
			case errors.Is(err, http.ErrMissingFile):
			case err != nil:
				writeError(w, http.StatusBadRequest, "invalid_upload", err.Error())
				return
			default:
				defer file.Close()
				doc = &blob.File{
					Name:        header.Filename,
					ContentType: header.Header.Get("Content-Type"),
					Size:        header.Size,
					Body:        io.Reader(file),
				}
			}
		} else if !decodeAndValidate(w, r, &req) {
			return
		}

		p, err := svc.RegisterPatient(r.Context(), req.toPatient(), doc)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		schedule, err := parseSchedule(req.Schedule)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule", "schedule must be RFC 3339 or YYYY-MM-DDTHH:MM")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), appointment.CreateParams{
			UserID:           req.UserID,
			PatientID:        req.PatientID,
			PrimaryPhysician: req.PrimaryPhysician,
			Schedule:         schedule,
			Reason:           req.Reason,
			Note:             req.Note,
			Status:           appointment.Status(req.Status),
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.GetAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func scheduleAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScheduleAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		var schedule time.Time
		if req.Schedule != "" {
			var err error
			if schedule, err = parseSchedule(req.Schedule); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_schedule", "schedule must be RFC 3339 or YYYY-MM-DDTHH:MM")
				return
			}
		}

		res, err := svc.UpdateAppointment(r.Context(), appointment.UpdateParams{
			AppointmentID: chi.URLParam(r, "id"),
			UserID:        req.UserID,
			Type:          appointment.TransitionSchedule,
			Appointment: appointment.Patch{
				PrimaryPhysician: req.PrimaryPhysician,
				Schedule:         schedule,
				Reason:           req.Reason,
				Note:             req.Note,
				Status:           appointment.Status(req.Status),
			},
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, transitionResponse(res))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := svc.UpdateAppointment(r.Context(), appointment.UpdateParams{
			AppointmentID: chi.URLParam(r, "id"),
			UserID:        req.UserID,
			Type:          appointment.TransitionCancel,
			Appointment: appointment.Patch{
				CancellationReason: req.CancellationReason,
				Status:             appointment.Status(req.Status),
			},
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, transitionResponse(res))
	}
}

func transitionResponse(res *appointment.TransitionResult) TransitionResponse {
	n := NotificationResponse{
		Status:  string(res.Notification.Status),
		Receipt: res.Notification.Receipt.ID,
	}
	if res.Notification.Err != nil {
		n.Error = res.Notification.Err.Error()
	}
	return TransitionResponse{Appointment: res.Appointment, Notification: n}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *appointment.PersistenceError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "appointment was modified concurrently, reload and retry")
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrValidation),
		errors.Is(err, patient.ErrInvalidInput),
		errors.Is(err, patient.ErrInvalidEmail),
		errors.Is(err, patient.ErrInvalidPhone),
		errors.Is(err, blob.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.As(err, &pe):
		LoggerFrom(r.Context()).ErrorContext(r.Context(), "persistence failure", "op", pe.Op, "error", pe.Err)
		writeError(w, http.StatusInternalServerError, "persistence_error", "could not save changes, please retry")
	default:
		LoggerFrom(r.Context()).ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out; an encode failure means the client went away.
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
