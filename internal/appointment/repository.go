package appointment

import (
	"context"
	"fmt"

	"github.com/izzypositivetech-001/IzzyCare/internal/patient"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
)

const (
	AppointmentsCollection = "appointments"
	ProvidersCollection    = "providers"
)

// Repository maps appointments and providers onto store collections.
type Repository struct {
	appointments *store.Collection[document]
	providers    *store.Collection[Provider]
}

func NewRepository(backend store.Backend) *Repository {
	return &Repository{
		appointments: store.NewCollection[document](backend, AppointmentsCollection),
		providers:    store.NewCollection[Provider](backend, ProvidersCollection),
	}
}

func toAppointment(doc *store.Document[document]) *Appointment {
	d := doc.Data
	return &Appointment{
		ID:                 doc.ID,
		UserID:             d.UserID,
		PatientID:          d.PatientID,
		PrimaryPhysician:   d.PrimaryPhysician,
		Schedule:           d.Schedule,
		Reason:             d.Reason,
		Note:               d.Note,
		Status:             d.Status,
		CancellationReason: d.CancellationReason,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
		Version:            doc.Version,
	}
}

// Create writes a new appointment. The patient and provider must already
// exist; the backend checks both in the same write.
func (r *Repository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	doc, err := r.appointments.Create(ctx, "", document{
		UserID:             a.UserID,
		PatientID:          a.PatientID,
		PrimaryPhysician:   a.PrimaryPhysician,
		Schedule:           a.Schedule,
		Reason:             a.Reason,
		Note:               a.Note,
		Status:             a.Status,
		CancellationReason: a.CancellationReason,
	},
		store.Ref{Collection: patient.PatientsCollection, ID: a.PatientID},
		store.Ref{Collection: ProvidersCollection, ID: a.PrimaryPhysician},
	)
	if err != nil {
		return nil, err
	}
	return toAppointment(doc), nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Appointment, error) {
	doc, err := r.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAppointment(doc), nil
}

// ListRecent returns every appointment, newest first, ties by id.
func (r *Repository) ListRecent(ctx context.Context) ([]Appointment, error) {
	docs, err := r.appointments.List(ctx, store.Query{
		OrderBy: []store.Order{store.OrderDesc(store.FieldCreatedAt)},
	})
	if err != nil {
		return nil, err
	}
	out := make([]Appointment, 0, len(docs))
	for i := range docs {
		out = append(out, *toAppointment(&docs[i]))
	}
	return out, nil
}

// Update merges patch into the stored appointment, conditional on version.
func (r *Repository) Update(ctx context.Context, id string, patch store.Fields, version int64) (*Appointment, error) {
	doc, err := r.appointments.Update(ctx, id, patch, version)
	if err != nil {
		return nil, err
	}
	return toAppointment(doc), nil
}

func (r *Repository) GetProvider(ctx context.Context, id string) (*Provider, error) {
	doc, err := r.providers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := doc.Data
	p.ID = doc.ID
	return &p, nil
}

func (r *Repository) ListProviders(ctx context.Context) ([]Provider, error) {
	docs, err := r.providers.List(ctx, store.Query{
		OrderBy: []store.Order{store.OrderAsc("name")},
	})
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	out := make([]Provider, 0, len(docs))
	for _, d := range docs {
		p := d.Data
		p.ID = d.ID
		out = append(out, p)
	}
	return out, nil
}

// CreateProvider stores a provider under a caller-chosen id such as "dr-smith".
func (r *Repository) CreateProvider(ctx context.Context, p Provider) (*Provider, error) {
	id := p.ID
	p.ID = ""
	doc, err := r.providers.Create(ctx, id, p)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	out := doc.Data
	out.ID = doc.ID
	return &out, nil
}
