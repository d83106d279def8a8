package alert

import (
	"fmt"
	"time"

	"billing-admin-backend/internal/model"
)

// Alert titles. Together with the machine id they form the dedup key.
const (
	TitleOffline     = "Machine Offline"
	TitleMaintenance = "Maintenance Mode"
	TitleSyncDelayed = "Sync Delayed"
)

// Condition is a health problem derived from a machine's current state.
type Condition struct {
	Severity model.Severity
	Title    string
	Message  string
}

// Thresholds tune the derivation.
type Thresholds struct {
	// SyncDelay is how stale an online machine's last sync may get.
	SyncDelay time.Duration
	// OfflineGrace delays the offline alert; zero raises it immediately.
	OfflineGrace time.Duration
}

// Derive maps a machine's status and last sync onto at most one condition.
func Derive(m *model.Machine, now time.Time, th Thresholds) (Condition, bool) {
	var since time.Duration
	if m.LastSync != nil {
		since = now.Sub(*m.LastSync)
	}

	switch m.Status {
	case model.MachineOffline:
		if m.LastSync == nil {
			return Condition{model.SeverityCritical, TitleOffline, "Machine has never synced"}, true
		}
		// A last_sync ahead of now is clock skew, not a recent sync.
		if since >= 0 && since < th.OfflineGrace {
			return Condition{}, false
		}
		since = max(since, 0)
		return Condition{
			Severity: model.SeverityCritical,
			Title:    TitleOffline,
			Message:  fmt.Sprintf("Machine Offline for > %d hours", int(since.Hours())),
		}, true

	case model.MachineMaintenance:
		return Condition{model.SeverityWarning, TitleMaintenance, "Machine in maintenance mode"}, true

	case model.MachineOnline:
		if m.LastSync == nil || since <= th.SyncDelay {
			return Condition{}, false
		}
		return Condition{
			Severity: model.SeverityWarning,
			Title:    TitleSyncDelayed,
			Message:  fmt.Sprintf("Sync delayed (Last sync: %dm ago)", int(since.Minutes())),
		}, true
	}
	return Condition{}, false
}
