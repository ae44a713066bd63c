package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	Store *Store
}

func NewRepository(store *Store) *Repository {
	return &Repository{Store: store}
}

// CreateOrGetComponent upserts a component by name. Unknown components
// are registered with placeholder inventory fields.
func (r *Repository) CreateOrGetComponent(ctx context.Context, name string) (Component, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		INSERT INTO components (id, name, component_type, firmware_version, ip_address, criticality, created_at, updated_at)
		VALUES ($1,$2,'unknown','0.0.0','0.0.0.0','low',now(),now())
		ON CONFLICT (name) DO UPDATE SET updated_at = components.updated_at
		RETURNING id, name, component_type, firmware_version, ip_address, criticality, created_at, updated_at`,
		uuid.NewString(), name,
	)
	var c Component
	if err := row.Scan(&c.ID, &c.Name, &c.ComponentType, &c.FirmwareVersion, &c.IPAddress, &c.Criticality, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Component{}, err
	}
	return c, nil
}

func (r *Repository) ListComponents(ctx context.Context) ([]ComponentOverview, error) {
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT c.name, c.component_type, c.firmware_version, c.ip_address, c.criticality, p.version, p.status
		FROM components c
		LEFT JOIN LATERAL (
			SELECT version, status FROM patch_statuses
			WHERE component_id = c.id
			ORDER BY created_at DESC LIMIT 1
		) p ON true
		ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []ComponentOverview{}
	for rows.Next() {
		var rec ComponentOverview
		if err := rows.Scan(&rec.Name, &rec.ComponentType, &rec.FirmwareVersion, &rec.IPAddress, &rec.Criticality, &rec.LatestPatch, &rec.PatchStatus); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *Repository) CreateTelemetry(ctx context.Context, rec TelemetryRecord) (string, error) {
	id := uuid.NewString()
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO telemetry_records (id, component_id, payload, severity, created_at)
		VALUES ($1,$2,$3,$4,now())`,
		id, rec.ComponentID, rec.Payload, rec.Severity,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListTelemetry returns the newest records first, component names joined.
func (r *Repository) ListTelemetry(ctx context.Context, limit int) ([]TelemetryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT t.id, t.component_id, c.name, t.payload, t.severity, t.created_at
		FROM telemetry_records t
		JOIN components c ON c.id = t.component_id
		ORDER BY t.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []TelemetryRecord{}
	for rows.Next() {
		var rec TelemetryRecord
		if err := rows.Scan(&rec.ID, &rec.ComponentID, &rec.ComponentName, &rec.Payload, &rec.Severity, &rec.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *Repository) CreateSecurityEvent(ctx context.Context, ev SecurityEvent) (string, error) {
	id := uuid.NewString()
	severity := ev.Severity
	if severity == "" {
		severity = SeverityInfo
	}
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO security_events (id, severity, category, details, context, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())`,
		id, severity, ev.Category, ev.Details, ev.Context, ev.Actor,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListSecurityEvents returns the newest events first. Empty filter
// fields match everything; the limit defaults to 100 and caps at 200.
func (r *Repository) ListSecurityEvents(ctx context.Context, filter EventFilter) ([]SecurityEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT id, severity, category, details, context, actor, created_at
		FROM security_events
		WHERE ($1 = '' OR severity = $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3`,
		filter.Severity, filter.Category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []SecurityEvent{}
	for rows.Next() {
		var rec SecurityEvent
		if err := rows.Scan(&rec.ID, &rec.Severity, &rec.Category, &rec.Details, &rec.Context, &rec.Actor, &rec.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *Repository) CreatePatchStatus(ctx context.Context, rec PatchRecord) (string, error) {
	id := uuid.NewString()
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO patch_statuses (id, component_id, version, status, requested_by, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())`,
		id, rec.ComponentID, rec.Version, rec.Status, rec.RequestedBy, rec.Notes,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) UpdatePatchStatus(ctx context.Context, id, status, notes string) error {
	tag, err := r.Store.Pool.Exec(ctx, `
		UPDATE patch_statuses SET status=$1, notes=$2, updated_at=now() WHERE id=$3`,
		status, notes, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetPatchStatus(ctx context.Context, id string) (PatchRecord, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT id, component_id, version, status, requested_by, notes, created_at, updated_at
		FROM patch_statuses WHERE id=$1`, id)
	var rec PatchRecord
	if err := row.Scan(&rec.ID, &rec.ComponentID, &rec.Version, &rec.Status, &rec.RequestedBy, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PatchRecord{}, ErrNotFound
		}
		return PatchRecord{}, err
	}
	return rec, nil
}

func (r *Repository) ActivitySummary(ctx context.Context) (ActivitySummary, error) {
	var s ActivitySummary
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM components),
			(SELECT count(*) FROM telemetry_records),
			(SELECT count(*) FROM security_events)`)
	if err := row.Scan(&s.Components, &s.TelemetryRecords, &s.Alerts); err != nil {
		return ActivitySummary{}, err
	}
	recent, err := r.ListSecurityEvents(ctx, EventFilter{Limit: 5})
	if err != nil {
		return ActivitySummary{}, err
	}
	s.RecentAlerts = recent
	return s, nil
}
