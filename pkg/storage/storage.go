package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/pvcast/pkg/types"
)

var (
	ErrMissingDeviceID = errors.New("reading missing device id")
	ErrMissingDate     = errors.New("forecast record missing date")
)

// Database is the telemetry store of the plant. It persists devices, their
// readings and the daily forecast audit records.
type Database interface {
	// Devices
	ListDevices(ctx context.Context) ([]types.Device, error)
	DeviceCount(ctx context.Context) (int, error)
	UpsertDevice(ctx context.Context, device types.Device) error

	// Readings
	// InsertReading registers the reading's device if it is unknown.
	InsertReading(ctx context.Context, reading types.Reading) error
	// LatestReading returns nil without an error when the device has no
	// readings.
	LatestReading(ctx context.Context, deviceID string) (*types.Reading, error)
	ReadingsSince(ctx context.Context, since time.Time) ([]types.Reading, error)

	// Forecast audit
	UpsertForecastRecord(ctx context.Context, record types.ForecastRecord) error
	// ForecastHistory returns up to limit records dated before before, most
	// recent first.
	ForecastHistory(ctx context.Context, before time.Time, limit int) ([]types.ForecastRecord, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, postgres)")

	var p struct{ Database }

	fs := configuredFirestore()
	pg := configuredPostgres()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "postgres":
			if err := pg.Validate(); err != nil {
				panic(fmt.Sprintf("postgres validation failed: %v", err))
			}
			p.Database = pg
			if err := pg.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("postgres init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

func validateReading(r types.Reading) error {
	if r.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("reading for device %s missing timestamp", r.DeviceID)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("reading for device %s: %w", r.DeviceID, err)
	}
	return nil
}
