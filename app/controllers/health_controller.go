package controllers

import (
	"net/http"

	"postboard/app/repositories"
)

// HealthReporter exposes the state of the post store
type HealthReporter interface {
	StoreHealth() repositories.StoreHealth
}

// HealthController serves liveness endpoints
type HealthController struct {
	reporter HealthReporter
}

func NewHealthController(reporter HealthReporter) *HealthController {
	return &HealthController{reporter: reporter}
}

// Health always answers {"ok": true} while the process is serving
func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Detailed adds the store backend and whether it had to recover from a
// corrupt read.
func (hc *HealthController) Detailed(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, struct {
		OK    bool                     `json:"ok"`
		Store repositories.StoreHealth `json:"store"`
	}{
		OK:    true,
		Store: hc.reporter.StoreHealth(),
	})
}
