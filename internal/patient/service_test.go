package patient

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/izzypositivetech-001/IzzyCare/internal/blob"
	"github.com/izzypositivetech-001/IzzyCare/internal/logging"
	"github.com/izzypositivetech-001/IzzyCare/internal/notify"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
)

type failingBlobs struct{ calls int }

func (f *failingBlobs) Store(ctx context.Context, bucket, id string, file blob.File) (blob.Object, error) {
	f.calls++
	return blob.Object{}, errors.New("bucket unavailable")
}

func newService(blobs blob.Store) *Service {
	return NewService(store.NewMemoryBackend(), blobs, "identity-docs", "ng", logging.Discard())
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr bool
	}{
		{"local nigerian", "0803 123 4567", "NG", "+2348031234567", false},
		{"international", "+1 650-253-0000", "NG", "+16502530000", false},
		{"too short", "12345", "NG", "", true},
		{"garbage", "call me", "NG", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.region)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("expected ErrInvalidPhone, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCreateAndGetUser(t *testing.T) {
	svc := newService(blob.NewMemoryStore(""))
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, " Ada Obi ", "Ada <ada@example.com>", "08031234567")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == "" || u.Name != "Ada Obi" || u.Email != "ada@example.com" || u.Phone != "+2348031234567" {
		t.Errorf("unexpected user %+v", u)
	}

	got, err := svc.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if *got != *u {
		t.Errorf("expected %+v, got %+v", u, got)
	}

	if _, err := svc.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUser_Invalid(t *testing.T) {
	svc := newService(blob.NewMemoryStore(""))

	tests := []struct {
		name, userName, email, phone string
		wantErr                      error
	}{
		{"no name", "", "a@example.com", "08031234567", ErrInvalidInput},
		{"bad email", "Ada", "not-an-email", "08031234567", ErrInvalidEmail},
		{"bad phone", "Ada", "a@example.com", "123", ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.userName, tt.email, tt.phone)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterPatient_WithDocument(t *testing.T) {
	blobs := blob.NewMemoryStore("")
	svc := newService(blobs)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, "Ada", "ada@example.com", "08031234567")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	p, err := svc.RegisterPatient(ctx, Patient{
		UserID:           u.ID,
		Name:             "Ada",
		Email:            "ada@example.com",
		Phone:            "08031234567",
		PrimaryPhysician: "dr-smith",
		PrivacyConsent:   true,
	}, &blob.File{Name: "passport.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("RegisterPatient failed: %v", err)
	}

	if p.IdentificationDocumentID == nil || p.IdentificationDocumentURL == nil {
		t.Fatal("expected identification document id and url")
	}
	if !strings.HasPrefix(*p.IdentificationDocumentURL, "memory://identity-docs/") {
		t.Errorf("unexpected document url %s", *p.IdentificationDocumentURL)
	}
	if _, ok := blobs.Open("identity-docs", *p.IdentificationDocumentID); !ok {
		t.Error("expected uploaded document in blob store")
	}
	if p.Phone != "+2348031234567" {
		t.Errorf("expected normalised phone, got %s", p.Phone)
	}

	got, err := svc.GetPatient(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if got.ID != p.ID || !got.PrivacyConsent {
		t.Errorf("unexpected patient %+v", got)
	}
}

func TestRegisterPatient_WithoutDocument(t *testing.T) {
	svc := newService(&failingBlobs{})
	ctx := context.Background()

	u, _ := svc.CreateUser(ctx, "Ada", "ada@example.com", "08031234567")
	p, err := svc.RegisterPatient(ctx, Patient{UserID: u.ID, Name: "Ada"}, nil)
	if err != nil {
		t.Fatalf("RegisterPatient failed: %v", err)
	}
	if p.IdentificationDocumentID != nil || p.IdentificationDocumentURL != nil {
		t.Errorf("expected no document fields, got %+v", p)
	}
}

func TestRegisterPatient_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		svc := newService(blob.NewMemoryStore(""))
		_, err := svc.RegisterPatient(ctx, Patient{UserID: "ghost"}, nil)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("upload failure writes nothing", func(t *testing.T) {
		blobs := &failingBlobs{}
		svc := newService(blobs)
		u, _ := svc.CreateUser(ctx, "Ada", "ada@example.com", "08031234567")

		_, err := svc.RegisterPatient(ctx, Patient{UserID: u.ID}, &blob.File{Name: "a.png", Size: 1, Body: strings.NewReader("x")})
		if err == nil {
			t.Fatal("expected upload error")
		}
		if _, err := svc.GetPatient(ctx, u.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected no patient record, got %v", err)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		svc := newService(blob.NewMemoryStore(""))
		if _, err := svc.RegisterPatient(ctx, Patient{}, nil); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestResolve(t *testing.T) {
	svc := newService(blob.NewMemoryStore(""))
	ctx := context.Background()
	u, _ := svc.CreateUser(ctx, "Ada", "ada@example.com", "08031234567")

	c, err := svc.Resolve(ctx, u.ID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.Phone != "+2348031234567" || c.Email != "ada@example.com" {
		t.Errorf("unexpected contact %+v", c)
	}

	if _, err := svc.Resolve(ctx, "ghost"); !errors.Is(err, notify.ErrRecipientNotFound) {
		t.Errorf("expected ErrRecipientNotFound, got %v", err)
	}
}
