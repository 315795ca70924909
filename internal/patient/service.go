// Package patient registers users and their patient records. Users double as
// notification recipients.
package patient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/izzypositivetech-001/IzzyCare/internal/blob"
	"github.com/izzypositivetech-001/IzzyCare/internal/notify"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
)

var (
	ErrNotFound     = store.ErrNotFound
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidInput = errors.New("invalid patient details")
)

type Service struct {
	users    *store.Collection[User]
	patients *store.Collection[Patient]
	blobs    blob.Store
	bucket   string
	region   string
	log      *slog.Logger
}

// NewService wires the user and patient collections. region is the default
// country for phone numbers written without a country code.
func NewService(backend store.Backend, blobs blob.Store, bucket, region string, log *slog.Logger) *Service {
	return &Service{
		users:    store.NewCollection[User](backend, UsersCollection),
		patients: store.NewCollection[Patient](backend, PatientsCollection),
		blobs:    blobs,
		bucket:   bucket,
		region:   strings.ToUpper(region),
		log:      log,
	}
}

// NormalizePhone parses a number and formats it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPhone, raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (s *Service) CreateUser(ctx context.Context, name, email, phone string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	e164, err := NormalizePhone(phone, s.region)
	if err != nil {
		return nil, err
	}

	doc, err := s.users.Create(ctx, "", User{Name: name, Email: addr.Address, Phone: e164})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.InfoContext(ctx, "user created", "user_id", doc.ID)

	u := doc.Data
	u.ID = doc.ID
	return &u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	doc, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u := doc.Data
	u.ID = doc.ID
	return &u, nil
}

// GetPatient returns the patient record registered for a user.
func (s *Service) GetPatient(ctx context.Context, userID string) (*Patient, error) {
	docs, err := s.patients.List(ctx, store.Query{
		Where:   []store.Eq{store.Equal("userId", userID)},
		OrderBy: []store.Order{store.OrderAsc(store.FieldCreatedAt)},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("get patient for user %s: %w", userID, ErrNotFound)
	}
	p := docs[0].Data
	p.ID = docs[0].ID
	return &p, nil
}

// RegisterPatient stores the patient record, uploading the identification
// document first when one is given. The user must exist.
func (s *Service) RegisterPatient(ctx context.Context, p Patient, doc *blob.File) (*Patient, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if p.Phone != "" {
		e164, err := NormalizePhone(p.Phone, s.region)
		if err != nil {
			return nil, err
		}
		p.Phone = e164
	}
	if p.EmergencyContactNumber != "" {
		e164, err := NormalizePhone(p.EmergencyContactNumber, s.region)
		if err != nil {
			return nil, err
		}
		p.EmergencyContactNumber = e164
	}

	p.ID = ""
	p.IdentificationDocumentID = nil
	p.IdentificationDocumentURL = nil

	if doc != nil {
		obj, err := s.blobs.Store(ctx, s.bucket, "", *doc)
		if err != nil {
			return nil, fmt.Errorf("upload identification document: %w", err)
		}
		p.IdentificationDocumentID = &obj.ID
		p.IdentificationDocumentURL = &obj.URL
	}

	created, err := s.patients.Create(ctx, "", p, store.Ref{Collection: UsersCollection, ID: p.UserID})
	if err != nil {
		return nil, fmt.Errorf("register patient: %w", err)
	}
	s.log.InfoContext(ctx, "patient registered", "patient_id", created.ID, "user_id", p.UserID)

	out := created.Data
	out.ID = created.ID
	return &out, nil
}

// Resolve implements notify.Directory over the users collection.
func (s *Service) Resolve(ctx context.Context, recipientID string) (notify.Contact, error) {
	doc, err := s.users.Get(ctx, recipientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notify.Contact{}, fmt.Errorf("%w: %s", notify.ErrRecipientNotFound, recipientID)
		}
		return notify.Contact{}, fmt.Errorf("resolve recipient: %w", err)
	}
	return notify.Contact{Name: doc.Data.Name, Email: doc.Data.Email, Phone: doc.Data.Phone}, nil
}
