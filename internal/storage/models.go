package storage

import "time"

const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	PatchPending    = "pending"
	PatchInProgress = "in_progress"
	PatchSuccess    = "success"
	PatchFailed     = "failed"
)

type Component struct {
	ID              string
	Name            string
	ComponentType   string
	FirmwareVersion string
	IPAddress       string
	Criticality     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ComponentOverview is the fleet listing row: component fields plus the
// most recent patch, when one exists.
type ComponentOverview struct {
	Name            string
	ComponentType   string
	FirmwareVersion string
	IPAddress       string
	Criticality     string
	LatestPatch     *string
	PatchStatus     *string
}

type TelemetryRecord struct {
	ID            string
	ComponentID   string
	ComponentName string
	Payload       []byte
	Severity      string
	CreatedAt     time.Time
}

type SecurityEvent struct {
	ID        string
	Severity  string
	Category  string
	Details   string
	Context   []byte
	Actor     string
	CreatedAt time.Time
}

type PatchRecord struct {
	ID          string
	ComponentID string
	Version     string
	Status      string
	RequestedBy string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EventFilter struct {
	Severity string
	Category string
	Limit    int
}

type ActivitySummary struct {
	Components       int64
	TelemetryRecords int64
	Alerts           int64
	RecentAlerts     []SecurityEvent
}
