package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/pvcast/pkg/types"
)

// PostgresProvider implements Database on a relational schema shared with
// the rest of the energy management backend.
type PostgresProvider struct {
	pool        *pgxpool.Pool
	databaseURL string
}

// configuredPostgres sets up the Postgres provider.
// It registers flags for configuration.
func configuredPostgres() *PostgresProvider {
	databaseURL := lflag.String("postgres-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")

	p := &PostgresProvider{}

	lflag.Do(func() {
		p.databaseURL = *databaseURL
	})

	return p
}

// Validate checks if the provider is properly configured.
func (p *PostgresProvider) Validate() error {
	if p.databaseURL == "" {
		return errors.New("postgres-url is required")
	}
	return nil
}

const createSchemaSQL = `
    CREATE TABLE IF NOT EXISTS pv_device (
        device_id TEXT PRIMARY KEY,
        name      TEXT NOT NULL DEFAULT ''
    );
    CREATE TABLE IF NOT EXISTS pv_generation_data (
        device_id        TEXT NOT NULL REFERENCES pv_device (device_id),
        collect_time     TIMESTAMPTZ NOT NULL,
        string_voltage_v DOUBLE PRECISION NOT NULL,
        string_current_a DOUBLE PRECISION NOT NULL,
        gen_kwh          DOUBLE PRECISION NOT NULL DEFAULT 0,
        inverter_eff_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
        PRIMARY KEY (device_id, collect_time)
    );
    CREATE INDEX IF NOT EXISTS pv_generation_data_collect_time_idx ON pv_generation_data (collect_time);
    CREATE TABLE IF NOT EXISTS pv_forecast_data (
        forecast_date DATE PRIMARY KEY,
        deviation_pct DOUBLE PRECISION NOT NULL
    );
`

// Init connects the pool and creates the schema if it does not exist.
func (p *PostgresProvider) Init(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, p.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if _, err := pool.Exec(ctx, createSchemaSQL); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	p.pool = pool
	return nil
}

// Close releases the pool resources.
func (p *PostgresProvider) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

const upsertDeviceSQL = `
    INSERT INTO pv_device (device_id, name) VALUES ($1, $2)
    ON CONFLICT (device_id) DO UPDATE SET name = EXCLUDED.name
`

// UpsertDevice adds or renames a device.
func (p *PostgresProvider) UpsertDevice(ctx context.Context, device types.Device) error {
	if device.ID == "" {
		return ErrMissingDeviceID
	}
	if _, err := p.pool.Exec(ctx, upsertDeviceSQL, device.ID, device.Name); err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", device.ID, err)
	}
	return nil
}

const listDevicesSQL = `
    SELECT device_id, name
    FROM pv_device
    ORDER BY device_id
`

// ListDevices returns every device ordered by ID.
func (p *PostgresProvider) ListDevices(ctx context.Context) ([]types.Device, error) {
	rows, err := p.pool.Query(ctx, listDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := make([]types.Device, 0)
	for rows.Next() {
		var d types.Device
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// DeviceCount returns the number of devices.
func (p *PostgresProvider) DeviceCount(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM pv_device`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return n, nil
}

const registerDeviceSQL = `
    INSERT INTO pv_device (device_id) VALUES ($1)
    ON CONFLICT (device_id) DO NOTHING
`

const insertReadingSQL = `
    INSERT INTO pv_generation_data (device_id, collect_time, string_voltage_v, string_current_a, gen_kwh, inverter_eff_pct)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (device_id, collect_time) DO NOTHING
`

// InsertReading stores a reading. A duplicate of an existing reading is
// ignored.
func (p *PostgresProvider) InsertReading(ctx context.Context, r types.Reading) error {
	if err := validateReading(r); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	batch.Queue(registerDeviceSQL, r.DeviceID)
	batch.Queue(insertReadingSQL, r.DeviceID, r.Timestamp, r.VoltageV, r.CurrentA, r.GenKWH, r.InverterEffPct)
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

const readingColumns = `device_id, collect_time, string_voltage_v, string_current_a, gen_kwh, inverter_eff_pct`

const latestReadingSQL = `
    SELECT ` + readingColumns + `
    FROM pv_generation_data
    WHERE device_id = $1
    ORDER BY collect_time DESC
    LIMIT 1
`

// LatestReading returns the most recent reading of deviceID, or nil if the
// device has never reported.
func (p *PostgresProvider) LatestReading(ctx context.Context, deviceID string) (*types.Reading, error) {
	r, err := scanReading(p.pool.QueryRow(ctx, latestReadingSQL, deviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading for %s: %w", deviceID, err)
	}
	return &r, nil
}

const readingsSinceSQL = `
    SELECT ` + readingColumns + `
    FROM pv_generation_data
    WHERE collect_time >= $1
    ORDER BY collect_time
`

// ReadingsSince returns every reading with a timestamp at or after since,
// oldest first.
func (p *PostgresProvider) ReadingsSince(ctx context.Context, since time.Time) ([]types.Reading, error) {
	rows, err := p.pool.Query(ctx, readingsSinceSQL, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := make([]types.Reading, 0)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func scanReading(row pgx.Row) (types.Reading, error) {
	var r types.Reading
	err := row.Scan(&r.DeviceID, &r.Timestamp, &r.VoltageV, &r.CurrentA, &r.GenKWH, &r.InverterEffPct)
	return r, err
}

const upsertForecastRecordSQL = `
    INSERT INTO pv_forecast_data (forecast_date, deviation_pct) VALUES ($1, $2)
    ON CONFLICT (forecast_date) DO UPDATE SET deviation_pct = EXCLUDED.deviation_pct
`

// UpsertForecastRecord stores the audit record of a day.
func (p *PostgresProvider) UpsertForecastRecord(ctx context.Context, record types.ForecastRecord) error {
	if record.Date.IsZero() {
		return ErrMissingDate
	}
	date := record.Date.Format(forecastRecordDateLayout)
	if _, err := p.pool.Exec(ctx, upsertForecastRecordSQL, date, record.DeviationPct); err != nil {
		return fmt.Errorf("failed to upsert forecast record: %w", err)
	}
	return nil
}

const forecastHistorySQL = `
    SELECT to_char(forecast_date, 'YYYY-MM-DD'), deviation_pct
    FROM pv_forecast_data
    WHERE forecast_date < $1::date
    ORDER BY forecast_date DESC
    LIMIT $2
`

// ForecastHistory returns up to limit audit records dated before before,
// most recent first. Dates are returned at midnight in before's location.
func (p *PostgresProvider) ForecastHistory(ctx context.Context, before time.Time, limit int) ([]types.ForecastRecord, error) {
	rows, err := p.pool.Query(ctx, forecastHistorySQL, before.Format(forecastRecordDateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast history: %w", err)
	}
	defer rows.Close()

	records := make([]types.ForecastRecord, 0)
	for rows.Next() {
		var date string
		var r types.ForecastRecord
		if err := rows.Scan(&date, &r.DeviationPct); err != nil {
			return nil, fmt.Errorf("failed to scan forecast record: %w", err)
		}
		r.Date, err = time.ParseInLocation(forecastRecordDateLayout, date, before.Location())
		if err != nil {
			return nil, fmt.Errorf("invalid forecast date %s: %w", date, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
