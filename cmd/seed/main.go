package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/caarlos0/env/v11"

	"github.com/izzypositivetech-001/IzzyCare/internal/appointment"
	"github.com/izzypositivetech-001/IzzyCare/internal/blob"
	"github.com/izzypositivetech-001/IzzyCare/internal/config"
	"github.com/izzypositivetech-001/IzzyCare/internal/db"
	"github.com/izzypositivetech-001/IzzyCare/internal/logging"
	"github.com/izzypositivetech-001/IzzyCare/internal/notify"
	"github.com/izzypositivetech-001/IzzyCare/internal/patient"
	redisclient "github.com/izzypositivetech-001/IzzyCare/internal/redis"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
	"github.com/izzypositivetech-001/IzzyCare/internal/view"
)

type seedConfig struct {
	Providers    int `env:"SEED_PROVIDERS" envDefault:"9"`
	Patients     int `env:"SEED_PATIENTS" envDefault:"200"`
	Appointments int `env:"SEED_APPOINTMENTS" envDefault:"500"`
}

var specialties = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Neurology",
	"Orthopedics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg, "seed")

	var sc seedConfig
	if err := env.Parse(&sc); err != nil {
		log.Error("seed config error", "error", err)
		os.Exit(1)
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Error("seed needs STORE_DRIVER=postgres, the memory store does not outlive this process")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	backend := store.NewPgBackend(pool)

	// Cached views must notice the seeded rows.
	var views view.Invalidator = view.NewMemoryCache(cfg.ViewTTL)
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		views = view.NewRedisCache(rdb, redisclient.NewRedisLocker(rdb, cfg.LockTTL), cfg.ViewTTL, log)
	}

	repo := appointment.NewRepository(backend)
	patients := patient.NewService(backend, blob.NewMemoryStore(""), "", cfg.DefaultRegion, log)
	engine := appointment.NewEngine(repo, notify.NewNoop(log), views, appointment.Options{
		ClinicName: cfg.ClinicName,
		Logger:     log,
	})

	providerIDs, err := seedProviders(ctx, repo, sc.Providers, log)
	if err != nil {
		log.Error("seed providers", "error", err)
		os.Exit(1)
	}

	people, err := seedPatients(ctx, patients, sc.Patients, log)
	if err != nil {
		log.Error("seed patients", "error", err)
		os.Exit(1)
	}

	if err := seedAppointments(ctx, engine, providerIDs, people, sc.Appointments, log); err != nil {
		log.Error("seed appointments", "error", err)
		os.Exit(1)
	}

	log.Info("seed complete")
}

func seedProviders(ctx context.Context, repo *appointment.Repository, count int, log *slog.Logger) ([]string, error) {
	log.Info("seeding providers", "count", count)

	ids := make([]string, 0, count+1)

	// dr-smith is referenced by docs and the simulator.
	fixed := appointment.Provider{ID: "dr-smith", Name: "John Smith", Specialty: "General Practice"}
	if _, err := repo.CreateProvider(ctx, fixed); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return nil, err
	}
	ids = append(ids, fixed.ID)

	for i := 0; i < count; i++ {
		last := gofakeit.LastName()
		p := appointment.Provider{
			ID:        fmt.Sprintf("dr-%s-%d", gofakeit.Username(), i),
			Name:      gofakeit.FirstName() + " " + last,
			Specialty: specialties[gofakeit.Number(0, len(specialties)-1)],
			Image:     gofakeit.URL(),
		}
		created, err := repo.CreateProvider(ctx, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, created.ID)
	}

	log.Info("providers seeded", "count", len(ids))
	return ids, nil
}

type person struct {
	userID    string
	patientID string
}

func seedPatients(ctx context.Context, svc *patient.Service, count int, log *slog.Logger) ([]person, error) {
	log.Info("seeding patients", "count", count)

	out := make([]person, 0, count)
	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		email := gofakeit.Email()
		phone := gofakeit.Numerify("0803#######")

		u, err := svc.CreateUser(ctx, name, email, phone)
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}

		birth := gofakeit.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
		p, err := svc.RegisterPatient(ctx, patient.Patient{
			UserID:                 u.ID,
			Name:                   name,
			Email:                  email,
			Phone:                  phone,
			BirthDate:              &birth,
			Gender:                 gofakeit.RandomString([]string{"male", "female", "other"}),
			Address:                gofakeit.Address().Address,
			Occupation:             gofakeit.JobTitle(),
			EmergencyContactName:   gofakeit.Name(),
			EmergencyContactNumber: gofakeit.Numerify("0805#######"),
			InsuranceProvider:      gofakeit.Company(),
			InsurancePolicyNumber:  gofakeit.Numerify("POL-########"),
			TreatmentConsent:       true,
			DisclosureConsent:      true,
			PrivacyConsent:         true,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("register patient %d: %w", i, err)
		}

		out = append(out, person{userID: u.ID, patientID: p.ID})
		if (i+1)%50 == 0 {
			log.Info("patients seeded", "done", i+1, "total", count)
		}
	}
	return out, nil
}

// seedAppointments creates pending appointments and moves roughly half of
// them to scheduled and a sixth to cancelled.
func seedAppointments(ctx context.Context, engine *appointment.Engine, providers []string, people []person, count int, log *slog.Logger) error {
	if len(providers) == 0 || len(people) == 0 {
		return errors.New("need at least one provider and one patient")
	}
	log.Info("seeding appointments", "count", count)

	now := time.Now().UTC().Truncate(time.Minute)
	for i := 0; i < count; i++ {
		who := people[gofakeit.Number(0, len(people)-1)]
		schedule := now.Add(time.Duration(gofakeit.Number(-30*24, 60*24)) * time.Hour)

		appt, err := engine.CreateAppointment(ctx, appointment.CreateParams{
			UserID:           who.userID,
			PatientID:        who.patientID,
			PrimaryPhysician: providers[gofakeit.Number(0, len(providers)-1)],
			Schedule:         schedule,
			Reason:           gofakeit.Sentence(6),
		})
		if err != nil {
			return fmt.Errorf("create appointment %d: %w", i, err)
		}

		var params *appointment.UpdateParams
		switch roll := gofakeit.Number(0, 5); {
		case roll < 3:
			params = &appointment.UpdateParams{AppointmentID: appt.ID, Type: appointment.TransitionSchedule}
		case roll == 3:
			params = &appointment.UpdateParams{
				AppointmentID: appt.ID,
				Type:          appointment.TransitionCancel,
				Appointment:   appointment.Patch{CancellationReason: gofakeit.Sentence(4)},
			}
		}
		if params != nil {
			if _, err := engine.UpdateAppointment(ctx, *params); err != nil {
				return fmt.Errorf("transition appointment %s: %w", appt.ID, err)
			}
		}
	}

	log.Info("appointments seeded", "count", count)
	return nil
}
