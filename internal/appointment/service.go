package appointment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/izzypositivetech-001/IzzyCare/internal/notify"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
	"github.com/izzypositivetech-001/IzzyCare/internal/view"
)

// ScheduleLayout is how schedules appear in patient messages.
const ScheduleLayout = "2006-01-02T15:04"

// Observer receives outcome counts. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveTransition(kind, result string)
	ObserveNotification(result string)
	ObserveInvalidation(view, result string)
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(string, string)   {}
func (nopObserver) ObserveNotification(string)         {}
func (nopObserver) ObserveInvalidation(string, string) {}

type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationSkipped NotificationStatus = "skipped"
)

// Outcome records what happened to the patient message after a transition
// was committed. A failed outcome never affects the transition itself.
type Outcome struct {
	Status  NotificationStatus `json:"status"`
	Receipt notify.Receipt     `json:"-"`
	Err     error              `json:"-"`
}

type TransitionResult struct {
	Appointment  *Appointment `json:"appointment"`
	Notification Outcome      `json:"notification"`
}

type Options struct {
	ClinicName    string
	NotifyTimeout time.Duration
	Observer      Observer
	Logger        *slog.Logger
}

// Engine runs appointment writes and their side effects: persist, notify,
// invalidate, strictly in that order.
type Engine struct {
	repo          *Repository
	dispatcher    notify.Dispatcher
	views         view.Invalidator
	clinicName    string
	notifyTimeout time.Duration
	obs           Observer
	log           *slog.Logger
}

func NewEngine(repo *Repository, dispatcher notify.Dispatcher, views view.Invalidator, opts Options) *Engine {
	e := &Engine{
		repo:          repo,
		dispatcher:    dispatcher,
		views:         views,
		clinicName:    opts.ClinicName,
		notifyTimeout: opts.NotifyTimeout,
		obs:           opts.Observer,
		log:           opts.Logger,
	}
	if e.clinicName == "" {
		e.clinicName = "IzzyCare"
	}
	if e.obs == nil {
		e.obs = nopObserver{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// CreateAppointment stores a new pending appointment. Any status on params is
// ignored. The write is attempted once.
func (e *Engine) CreateAppointment(ctx context.Context, params CreateParams) (*Appointment, error) {
	if err := validateCreate(params); err != nil {
		e.obs.ObserveTransition("create", "invalid")
		return nil, err
	}

	appt, err := e.repo.Create(ctx, Appointment{
		UserID:           params.UserID,
		PatientID:        params.PatientID,
		PrimaryPhysician: params.PrimaryPhysician,
		Schedule:         params.Schedule,
		Reason:           strings.TrimSpace(params.Reason),
		Note:             strings.TrimSpace(params.Note),
		Status:           StatusPending,
	})
	if err != nil {
		e.obs.ObserveTransition("create", "error")
		return nil, persistErr("create appointment", err)
	}
	e.obs.ObserveTransition("create", "ok")

	e.log.InfoContext(ctx, "appointment created",
		"appointment_id", appt.ID,
		"patient_id", appt.PatientID,
		"provider", appt.PrimaryPhysician,
	)

	e.invalidateViews(context.WithoutCancel(ctx))
	return appt, nil
}

// UpdateAppointment moves an appointment to scheduled or cancelled. The target
// status comes from params.Type. Once the write is acknowledged the patient is
// notified and the cached views are invalidated; neither can undo the write.
func (e *Engine) UpdateAppointment(ctx context.Context, params UpdateParams) (*TransitionResult, error) {
	kind := string(params.Type)

	target, ok := params.Type.Target()
	if !ok {
		e.obs.ObserveTransition(kind, "invalid")
		return nil, validationErr("unknown transition type %q", params.Type)
	}
	if params.AppointmentID == "" {
		e.obs.ObserveTransition(kind, "invalid")
		return nil, validationErr("appointment id is required")
	}

	current, err := e.repo.Get(ctx, params.AppointmentID)
	if err != nil {
		e.obs.ObserveTransition(kind, "error")
		return nil, persistErr("load appointment", err)
	}
	if current.Status == StatusCancelled {
		e.obs.ObserveTransition(kind, "invalid")
		return nil, fmt.Errorf("%w: appointment %s is cancelled", ErrInvalidTransition, current.ID)
	}

	patch, err := e.buildPatch(ctx, current, target, params.Appointment)
	if err != nil {
		e.obs.ObserveTransition(kind, "invalid")
		return nil, err
	}

	updated, err := e.repo.Update(ctx, current.ID, patch, current.Version)
	if err != nil {
		e.obs.ObserveTransition(kind, "error")
		return nil, persistErr("update appointment", err)
	}
	e.obs.ObserveTransition(kind, "ok")

	e.log.InfoContext(ctx, "appointment transitioned",
		"appointment_id", updated.ID,
		"from", current.Status,
		"to", updated.Status,
	)

	// The write is committed; side effects must not die with the caller.
	sideCtx := context.WithoutCancel(ctx)

	recipient := params.UserID
	if recipient == "" {
		recipient = updated.UserID
	}
	outcome := e.notify(sideCtx, updated, recipient, params.Type)

	e.invalidateViews(sideCtx)

	return &TransitionResult{Appointment: updated, Notification: outcome}, nil
}

func (e *Engine) buildPatch(ctx context.Context, current *Appointment, target Status, p Patch) (store.Fields, error) {
	patch := store.Fields{"status": target}

	switch target {
	case StatusScheduled:
		schedule := current.Schedule
		if !p.Schedule.IsZero() {
			schedule = p.Schedule
		}
		if schedule.IsZero() {
			return nil, validationErr("schedule is required")
		}
		patch["schedule"] = schedule

		if p.PrimaryPhysician != "" && p.PrimaryPhysician != current.PrimaryPhysician {
			if _, err := e.repo.GetProvider(ctx, p.PrimaryPhysician); err != nil {
				return nil, persistErr("load provider", err)
			}
			patch["primaryPhysician"] = p.PrimaryPhysician
		}
		if r := strings.TrimSpace(p.Reason); r != "" {
			patch["reason"] = r
		}
		if n := strings.TrimSpace(p.Note); n != "" {
			patch["note"] = n
		}
		patch["cancellationReason"] = ""

	case StatusCancelled:
		reason := strings.TrimSpace(p.CancellationReason)
		if reason == "" {
			return nil, validationErr("cancellation reason is required")
		}
		patch["cancellationReason"] = reason
	}

	return patch, nil
}

// notify sends the transition message and reports the outcome. It never
// returns an error.
func (e *Engine) notify(ctx context.Context, appt *Appointment, recipient string, t TransitionType) Outcome {
	if recipient == "" {
		e.obs.ObserveNotification(string(NotificationSkipped))
		return Outcome{Status: NotificationSkipped}
	}

	body := e.ComposeMessage(appt, t)
	receipt, err := e.SendSMSNotification(ctx, recipient, body)
	if err != nil {
		e.obs.ObserveNotification(string(NotificationFailed))
		e.log.WarnContext(ctx, "appointment notification failed",
			"appointment_id", appt.ID,
			"recipient", recipient,
			"error", err,
		)
		return Outcome{Status: NotificationFailed, Err: err}
	}

	e.obs.ObserveNotification(string(NotificationSent))
	return Outcome{Status: NotificationSent, Receipt: receipt}
}

// ComposeMessage renders the fixed patient message for a transition.
func (e *Engine) ComposeMessage(appt *Appointment, t TransitionType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi, it's %s.\n\n", e.clinicName)

	switch t {
	case TransitionSchedule:
		fmt.Fprintf(&b, "Your appointment has been scheduled for %s with Dr. %s.",
			appt.Schedule.Format(ScheduleLayout), appt.PrimaryPhysician)
	case TransitionCancel:
		fmt.Fprintf(&b, "We regret to inform you that your appointment has been cancelled for the following reason: %s.",
			appt.CancellationReason)
	}
	return b.String()
}

// SendSMSNotification delivers a finished body to a user through the
// configured dispatcher, bounded by the notify timeout.
func (e *Engine) SendSMSNotification(ctx context.Context, userID, body string) (notify.Receipt, error) {
	if e.notifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.notifyTimeout)
		defer cancel()
	}

	receipt, err := e.dispatcher.Send(ctx, userID, body)
	if err != nil {
		var de *notify.DispatchError
		if !errors.As(err, &de) {
			err = &notify.DispatchError{Recipient: userID, Err: err}
		}
		return notify.Receipt{}, err
	}
	return receipt, nil
}

func (e *Engine) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	appt, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, persistErr("get appointment", err)
	}
	return appt, nil
}

// GetRecentAppointmentList reads every appointment newest first and folds the
// counts. A store failure yields an empty snapshot so the dashboard still
// renders.
func (e *Engine) GetRecentAppointmentList(ctx context.Context) Snapshot {
	appts, err := e.repo.ListRecent(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "list recent appointments", "error", err)
		return Snapshot{Documents: []Appointment{}, Degraded: true}
	}
	return Snapshot{Counts: Count(appts), Documents: appts}
}

func (e *Engine) ListProviders(ctx context.Context) ([]Provider, error) {
	return e.repo.ListProviders(ctx)
}

func (e *Engine) invalidateViews(ctx context.Context) {
	for _, name := range []string{view.Dashboard, view.Landing} {
		if err := e.views.Invalidate(ctx, name); err != nil {
			e.obs.ObserveInvalidation(name, "error")
			e.log.WarnContext(ctx, "invalidate view", "view", name, "error", err)
			continue
		}
		e.obs.ObserveInvalidation(name, "ok")
	}
}

func validateCreate(p CreateParams) error {
	switch {
	case p.UserID == "":
		return validationErr("userId is required")
	case p.PatientID == "":
		return validationErr("patientId is required")
	case p.PrimaryPhysician == "":
		return validationErr("primaryPhysician is required")
	case p.Schedule.IsZero():
		return validationErr("schedule is required")
	}
	return nil
}
