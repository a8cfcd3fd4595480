package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/tonkit/internal/infra/tonapi"
	"github.com/vietddude/tonkit/internal/kit"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// Report is one health snapshot of the wallet kit.
type Report struct {
	Status    string    `json:"status"`
	Account   string    `json:"account"`
	Jettons   string    `json:"jettons"`
	Events    string    `json:"events"`
	Listener  string    `json:"listener"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor aggregates health status from the kit's sync domains and the
// push listener.
type Monitor struct {
	kit *kit.Kit

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a new health monitor.
func NewMonitor(k *kit.Kit) *Monitor {
	return &Monitor{kit: k}
}

// Check performs a health check. Results are cached briefly so a probe
// storm doesn't hammer the kit.
func (m *Monitor) Check() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && !m.lastCheck.IsZero() {
		return m.lastReport
	}

	account := m.kit.AccountSyncState()
	jettons := m.kit.JettonSyncState()
	events := m.kit.EventSyncState()
	listener := m.kit.ListenerState()

	report := Report{
		Status:    StatusHealthy,
		Account:   account.String(),
		Jettons:   jettons.String(),
		Events:    events.String(),
		Listener:  string(listener),
		CheckedAt: time.Now(),
	}

	// A failed sync domain is critical; still-syncing domains or a lost
	// push connection only degrade (poll sync keeps working).
	switch {
	case account.NotSynced() || jettons.NotSynced() || events.NotSynced():
		report.Status = StatusCritical
	case !account.Synced() || !jettons.Synced() || !events.Synced() ||
		listener != tonapi.ListenerStateConnected:
		report.Status = StatusDegraded
	}

	m.lastCheck = report.CheckedAt
	m.lastReport = report
	return report
}

// Handler serves the report as JSON: 200 unless critical.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := m.Check()

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusCritical {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}
