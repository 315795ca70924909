package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/caarlos0/env/v11"

	"github.com/izzypositivetech-001/IzzyCare/internal/appointment"
	"github.com/izzypositivetech-001/IzzyCare/internal/config"
	"github.com/izzypositivetech-001/IzzyCare/internal/logging"
)

type SimConfig struct {
	APIBaseURL    string        `env:"SIM_API_BASE_URL" envDefault:"http://localhost:8080"`
	Duration      time.Duration `env:"SIM_DURATION" envDefault:"30s"`
	Workers       int           `env:"SIM_WORKERS" envDefault:"10"`
	Patients      int           `env:"SIM_PATIENTS" envDefault:"20"`
	CreateRatio   float64       `env:"SIM_CREATE_RATIO" envDefault:"0.4"`
	ScheduleRatio float64       `env:"SIM_SCHEDULE_RATIO" envDefault:"0.25"`
	CancelRatio   float64       `env:"SIM_CANCEL_RATIO" envDefault:"0.1"`
	ReadRatio     float64       `env:"SIM_READ_RATIO" envDefault:"0.25"`
	AdminPasskey  string        `env:"SIM_ADMIN_PASSKEY"`
}

type person struct {
	UserID    string
	PatientID string
}

type DataPool struct {
	People       []person
	Providers    []string
	mu           sync.RWMutex
	appointments []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Create    OperationMetrics
	Schedule  OperationMetrics
	Cancel    OperationMetrics
	ReadByID  OperationMetrics
	Landing   OperationMetrics
	Dashboard OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	admin   *http.Client
	log     *slog.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}
	log := logging.New(baseCfg, "simulate")

	cfg, err := loadConfig()
	if err != nil {
		log.Error("invalid simulator config", "error", err)
		os.Exit(1)
	}
	log.Info("simulator starting",
		"duration", cfg.Duration, "workers", cfg.Workers,
		"create", cfg.CreateRatio, "schedule", cfg.ScheduleRatio, "cancel", cfg.CancelRatio, "read", cfg.ReadRatio)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sim.pool, err = sim.prepare(ctx)
	if err != nil {
		log.Error("prepare data pool", "error", err)
		os.Exit(1)
	}
	log.Info("data pool ready", "people", len(sim.pool.People), "providers", len(sim.pool.Providers))

	if cfg.AdminPasskey == "" {
		log.Warn("SIM_ADMIN_PASSKEY not set, only creates and reads are simulated")
	} else {
		sim.admin, err = sim.login(ctx)
		if err != nil {
			log.Warn("admin login failed, transitions and dashboard reads skipped", "error", err)
		}
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() (SimConfig, error) {
	var cfg SimConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Workers <= 0 {
		return cfg, errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return cfg, errors.New("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 {
		return cfg, errors.New("SIM_PATIENTS must be > 0")
	}

	total := cfg.CreateRatio + cfg.ScheduleRatio + cfg.CancelRatio + cfg.ReadRatio
	if total <= 0 {
		return cfg, errors.New("operation ratios must sum to > 0")
	}
	cfg.CreateRatio /= total
	cfg.ScheduleRatio /= total
	cfg.CancelRatio /= total
	cfg.ReadRatio /= total
	return cfg, nil
}

// prepare registers simulated patients over the API and reads the provider
// list from the landing view.
func (s *Simulator) prepare(ctx context.Context) (*DataPool, error) {
	pool := &DataPool{}

	var landing struct {
		View struct {
			Providers []appointment.Provider `json:"providers"`
		} `json:"view"`
	}
	status, err := s.call(ctx, s.client, http.MethodGet, "/", nil, &landing)
	if err := expect("load providers", status, http.StatusOK, err); err != nil {
		return nil, err
	}
	for _, p := range landing.View.Providers {
		pool.Providers = append(pool.Providers, p.ID)
	}
	if len(pool.Providers) == 0 {
		return nil, errors.New("no providers loaded, run the seed command first")
	}

	for i := 0; i < s.config.Patients; i++ {
		name := gofakeit.Name()
		email := gofakeit.Email()
		phone := gofakeit.Numerify("0803#######")

		var user struct {
			ID string `json:"id"`
		}
		status, err = s.call(ctx, s.client, http.MethodPost, "/users", map[string]any{
			"name": name, "email": email, "phone": phone,
		}, &user)
		if err := expect(fmt.Sprintf("create user %d", i), status, http.StatusCreated, err); err != nil {
			return nil, err
		}

		var pat struct {
			ID string `json:"id"`
		}
		status, err = s.call(ctx, s.client, http.MethodPost, "/patients", map[string]any{
			"userId":         user.ID,
			"name":           name,
			"email":          email,
			"phone":          phone,
			"gender":         gofakeit.RandomString([]string{"male", "female", "other"}),
			"address":        gofakeit.Address().Address,
			"privacyConsent": true,
		}, &pat)
		if err := expect(fmt.Sprintf("register patient %d", i), status, http.StatusCreated, err); err != nil {
			return nil, err
		}

		pool.People = append(pool.People, person{UserID: user.ID, PatientID: pat.ID})
	}
	return pool, nil
}

func expect(what string, status, want int, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if status != want {
		return fmt.Errorf("%s: unexpected status %d", what, status)
	}
	return nil
}

// login exchanges the passkey for the admin cookie and returns a client
// carrying it.
func (s *Simulator) login(ctx context.Context) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &http.Client{
		Timeout: 10 * time.Second,
		Jar:     jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	status, err := s.call(ctx, c, http.MethodPost, "/admin/passkey", map[string]string{"passkey": s.config.AdminPasskey}, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusSeeOther {
		return nil, fmt.Errorf("passkey rejected: status=%d", status)
	}
	return c, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info("starting simulation", "duration", s.config.Duration, "workers", s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	c := s.config

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch r := rng.Float64(); {
		case r < c.CreateRatio:
			s.doCreate(ctx, rng)
		case r < c.CreateRatio+c.ScheduleRatio:
			s.doSchedule(ctx, rng)
		case r < c.CreateRatio+c.ScheduleRatio+c.CancelRatio:
			s.doCancel(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doReadByID(ctx, rng)
			case 1:
				s.doLanding(ctx)
			case 2:
				s.doDashboard(ctx)
			}
		}
	}
}

func (s *Simulator) doCreate(ctx context.Context, rng *rand.Rand) {
	who := s.pool.People[rng.Intn(len(s.pool.People))]
	schedule := time.Now().Add(time.Duration(1+rng.Intn(24*30)) * time.Hour).UTC()

	var appt struct {
		ID string `json:"id"`
	}
	start := time.Now()
	status, err := s.call(ctx, s.client, http.MethodPost, "/appointments", map[string]string{
		"userId":           who.UserID,
		"patientId":        who.PatientID,
		"primaryPhysician": s.pool.Providers[rng.Intn(len(s.pool.Providers))],
		"schedule":         schedule.Format(time.RFC3339),
		"reason":           gofakeit.Sentence(5),
	}, &appt)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	if success && appt.ID != "" {
		s.pool.AddAppointment(appt.ID)
	}
	s.metrics.Create.Record(latency, success, status == http.StatusConflict)
}

func (s *Simulator) doSchedule(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok || s.admin == nil {
		return
	}

	body := map[string]string{}
	if rng.Intn(4) == 0 {
		body["schedule"] = time.Now().Add(time.Duration(1+rng.Intn(24*30)) * time.Hour).UTC().Format(time.RFC3339)
	}

	start := time.Now()
	status, err := s.call(ctx, s.admin, http.MethodPost, "/appointments/"+url.PathEscape(id)+"/schedule", body, nil)
	s.metrics.Schedule.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok || s.admin == nil {
		return
	}

	start := time.Now()
	status, err := s.call(ctx, s.admin, http.MethodPost, "/appointments/"+url.PathEscape(id)+"/cancel", map[string]string{
		"cancellationReason": gofakeit.Sentence(4),
	}, nil)
	s.metrics.Cancel.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.call(ctx, s.client, http.MethodGet, "/appointments/"+url.PathEscape(id), nil, nil)
	s.metrics.ReadByID.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doLanding(ctx context.Context) {
	start := time.Now()
	status, err := s.call(ctx, s.client, http.MethodGet, "/", nil, nil)
	s.metrics.Landing.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doDashboard(ctx context.Context) {
	if s.admin == nil {
		return
	}
	start := time.Now()
	status, err := s.call(ctx, s.admin, http.MethodGet, "/admin", nil, nil)
	s.metrics.Dashboard.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

// call sends body as JSON and decodes a 2xx response into out when out is
// non-nil. Transport failures return status 0.
func (s *Simulator) call(ctx context.Context, c *http.Client, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Create", &s.metrics.Create)
	printOperationReport("Schedule", &s.metrics.Schedule)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("Landing", &s.metrics.Landing)
	printOperationReport("Dashboard", &s.metrics.Dashboard)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
