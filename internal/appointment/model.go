package appointment

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCancelled:
		return true
	}
	return false
}

// TransitionType names the caller-requested move. The target status is derived
// from it, never read from the payload.
type TransitionType string

const (
	TransitionSchedule TransitionType = "schedule"
	TransitionCancel   TransitionType = "cancel"
)

func (t TransitionType) Target() (Status, bool) {
	switch t {
	case TransitionSchedule:
		return StatusScheduled, true
	case TransitionCancel:
		return StatusCancelled, true
	}
	return "", false
}

type Appointment struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	PatientID          string    `json:"patientId"`
	PrimaryPhysician   string    `json:"primaryPhysician"`
	Schedule           time.Time `json:"schedule"`
	Reason             string    `json:"reason"`
	Note               string    `json:"note,omitempty"`
	Status             Status    `json:"status"`
	CancellationReason string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Version            int64     `json:"version"`
}

// document is the stored shape. Identity and timestamps belong to the store.
type document struct {
	UserID             string    `json:"userId"`
	PatientID          string    `json:"patientId"`
	PrimaryPhysician   string    `json:"primaryPhysician"`
	Schedule           time.Time `json:"schedule"`
	Reason             string    `json:"reason"`
	Note               string    `json:"note,omitempty"`
	Status             Status    `json:"status"`
	CancellationReason string    `json:"cancellationReason,omitempty"`
}

type Provider struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	Image     string `json:"image,omitempty"`
}

type CreateParams struct {
	UserID           string
	PatientID        string
	PrimaryPhysician string
	Schedule         time.Time
	Reason           string
	Note             string
	// Status is accepted for form compatibility and ignored.
	Status Status
}

// Patch carries the transition payload. Schedule and PrimaryPhysician apply to
// schedule, CancellationReason to cancel. Status is ignored.
type Patch struct {
	PrimaryPhysician   string
	Schedule           time.Time
	Reason             string
	Note               string
	CancellationReason string
	Status             Status
}

type UpdateParams struct {
	AppointmentID string
	UserID        string
	Appointment   Patch
	Type          TransitionType
}

// Counts is the status fold over a set of appointments. Total covers the three
// known statuses; records with any other status land in Unrecognized.
type Counts struct {
	Total        int `json:"totalCount"`
	Scheduled    int `json:"scheduledCount"`
	Pending      int `json:"pendingCount"`
	Cancelled    int `json:"cancelledCount"`
	Unrecognized int `json:"unrecognizedCount,omitempty"`
}

// Snapshot is what the dashboard renders. Documents are most recent first.
// Degraded marks the empty fallback served when the store could not be read;
// it is good for one response only.
type Snapshot struct {
	Counts
	Documents []Appointment `json:"documents"`
	Degraded  bool          `json:"degraded,omitempty"`
}
