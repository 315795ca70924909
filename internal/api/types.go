package api

import (
	"time"

	"github.com/izzypositivetech-001/IzzyCare/internal/appointment"
	"github.com/izzypositivetech-001/IzzyCare/internal/patient"
)

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=50"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

type RegisterPatientRequest struct {
	UserID                 string `json:"userId" validate:"required"`
	Name                   string `json:"name" validate:"required,min=2,max=50"`
	Email                  string `json:"email" validate:"required,email"`
	Phone                  string `json:"phone" validate:"required"`
	BirthDate              string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Gender                 string `json:"gender" validate:"omitempty,oneof=male female other"`
	Address                string `json:"address" validate:"max=500"`
	Occupation             string `json:"occupation" validate:"max=500"`
	EmergencyContactName   string `json:"emergencyContactName" validate:"max=50"`
	EmergencyContactNumber string `json:"emergencyContactNumber"`
	PrimaryPhysician       string `json:"primaryPhysician"`
	InsuranceProvider      string `json:"insuranceProvider"`
	InsurancePolicyNumber  string `json:"insurancePolicyNumber"`
	Allergies              string `json:"allergies"`
	CurrentMedication      string `json:"currentMedication"`
	FamilyMedicalHistory   string `json:"familyMedicalHistory"`
	PastMedicalHistory     string `json:"pastMedicalHistory"`
	IdentificationType     string `json:"identificationType"`
	IdentificationNumber   string `json:"identificationNumber"`
	TreatmentConsent       bool   `json:"treatmentConsent"`
	DisclosureConsent      bool   `json:"disclosureConsent"`
	PrivacyConsent         bool   `json:"privacyConsent" validate:"eq=true"`
}

func (r RegisterPatientRequest) toPatient() patient.Patient {
	p := patient.Patient{
		UserID:                 r.UserID,
		Name:                   r.Name,
		Email:                  r.Email,
		Phone:                  r.Phone,
		Gender:                 r.Gender,
		Address:                r.Address,
		Occupation:             r.Occupation,
		EmergencyContactName:   r.EmergencyContactName,
		EmergencyContactNumber: r.EmergencyContactNumber,
		PrimaryPhysician:       r.PrimaryPhysician,
		InsuranceProvider:      r.InsuranceProvider,
		InsurancePolicyNumber:  r.InsurancePolicyNumber,
		Allergies:              r.Allergies,
		CurrentMedication:      r.CurrentMedication,
		FamilyMedicalHistory:   r.FamilyMedicalHistory,
		PastMedicalHistory:     r.PastMedicalHistory,
		IdentificationType:     r.IdentificationType,
		IdentificationNumber:   r.IdentificationNumber,
		TreatmentConsent:       r.TreatmentConsent,
		DisclosureConsent:      r.DisclosureConsent,
		PrivacyConsent:         r.PrivacyConsent,
	}
	if r.BirthDate != "" {
		if t, err := time.Parse("2006-01-02", r.BirthDate); err == nil {
			p.BirthDate = &t
		}
	}
	return p
}

// Status fields are accepted so existing forms keep working; they are ignored.

type CreateAppointmentRequest struct {
	UserID           string `json:"userId" validate:"required"`
	PatientID        string `json:"patientId" validate:"required"`
	PrimaryPhysician string `json:"primaryPhysician" validate:"required,min=2"`
	Schedule         string `json:"schedule" validate:"required"`
	Reason           string `json:"reason" validate:"max=500"`
	Note             string `json:"note" validate:"max=500"`
	Status           string `json:"status"`
}

type ScheduleAppointmentRequest struct {
	UserID           string `json:"userId"`
	PrimaryPhysician string `json:"primaryPhysician"`
	Schedule         string `json:"schedule"`
	Reason           string `json:"reason" validate:"max=500"`
	Note             string `json:"note" validate:"max=500"`
	Status           string `json:"status"`
}

type CancelAppointmentRequest struct {
	UserID             string `json:"userId"`
	CancellationReason string `json:"cancellationReason" validate:"required,min=2,max=500"`
	Status             string `json:"status"`
}

type TransitionResponse struct {
	Appointment  *appointment.Appointment `json:"appointment"`
	Notification NotificationResponse     `json:"notification"`
}

type NotificationResponse struct {
	Status  string `json:"status"`
	Receipt string `json:"receiptId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type LandingResponse struct {
	AdminPrompt bool `json:"adminPrompt"`
	View        any  `json:"view"`
}

type landingView struct {
	Clinic    string                 `json:"clinic"`
	Providers []appointment.Provider `json:"providers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
