package patient

import "time"

const (
	UsersCollection    = "users"
	PatientsCollection = "patients"
)

type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Patient struct {
	ID                        string     `json:"id,omitempty"`
	UserID                    string     `json:"userId"`
	Name                      string     `json:"name"`
	Email                     string     `json:"email"`
	Phone                     string     `json:"phone"`
	BirthDate                 *time.Time `json:"birthDate,omitempty"`
	Gender                    string     `json:"gender,omitempty"`
	Address                   string     `json:"address,omitempty"`
	Occupation                string     `json:"occupation,omitempty"`
	EmergencyContactName      string     `json:"emergencyContactName,omitempty"`
	EmergencyContactNumber    string     `json:"emergencyContactNumber,omitempty"`
	PrimaryPhysician          string     `json:"primaryPhysician,omitempty"`
	InsuranceProvider         string     `json:"insuranceProvider,omitempty"`
	InsurancePolicyNumber     string     `json:"insurancePolicyNumber,omitempty"`
	Allergies                 string     `json:"allergies,omitempty"`
	CurrentMedication         string     `json:"currentMedication,omitempty"`
	FamilyMedicalHistory      string     `json:"familyMedicalHistory,omitempty"`
	PastMedicalHistory        string     `json:"pastMedicalHistory,omitempty"`
	IdentificationType        string     `json:"identificationType,omitempty"`
	IdentificationNumber      string     `json:"identificationNumber,omitempty"`
	IdentificationDocumentID  *string    `json:"identificationDocumentId"`
	IdentificationDocumentURL *string    `json:"identificationDocumentUrl"`
	TreatmentConsent          bool       `json:"treatmentConsent"`
	DisclosureConsent         bool       `json:"disclosureConsent"`
	PrivacyConsent            bool       `json:"privacyConsent"`
}
