package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/izzypositivetech-001/IzzyCare/internal/view"
)

// landingHandler serves the public page data. The provider list is cached,
// the admin prompt flag is read per request.
func landingHandler(svc AppointmentService, cache view.Cache, clinic string) http.HandlerFunc {
	compute := func(ctx context.Context) ([]byte, error) {
		providers, err := svc.ListProviders(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(landingView{Clinic: clinic, Providers: providers})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := cache.Fetch(r.Context(), view.Landing, compute)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, LandingResponse{
			AdminPrompt: r.URL.Query().Get("admin") == "true",
			View:        json.RawMessage(raw),
		})
	}
}

// errDegradedSnapshot keeps a fallback snapshot out of the view cache.
var errDegradedSnapshot = errors.New("degraded snapshot")

// dashboardHandler serves the cached appointment snapshot. A degraded
// snapshot is still served, but only to the request that computed it.
func dashboardHandler(svc AppointmentService, cache view.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fallback []byte
		compute := func(ctx context.Context) ([]byte, error) {
			snap := svc.GetRecentAppointmentList(ctx)
			raw, err := json.Marshal(snap)
			if err != nil {
				return nil, err
			}
			if snap.Degraded {
				fallback = raw
				return nil, errDegradedSnapshot
			}
			return raw, nil
		}

		raw, err := cache.Fetch(r.Context(), view.Dashboard, compute)
		if errors.Is(err, errDegradedSnapshot) {
			LoggerFrom(r.Context()).WarnContext(r.Context(), "serving degraded dashboard")
			raw, err = fallback, nil
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeRawJSON(w, http.StatusOK, raw)
	}
}
