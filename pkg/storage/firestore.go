package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/pvcast/pkg/log"
	"github.com/raterudder/pvcast/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const forecastRecordDateLayout = "2006-01-02"

// FirestoreProvider implements Database using Google Cloud Firestore.
// Everything is stored under plants/{plantID} as JSON blobs next to the
// fields that queries filter on.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	plantID   string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	plantID := lflag.String("firestore-plant-id", "default", "Document under plants/ that holds this plant's data")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.plantID = *plantID

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// project ID may be inferred from the environment
	if f.plantID == "" {
		return fmt.Errorf("firestore-plant-id cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) collection(name string) *firestore.CollectionRef {
	return f.client.Collection("plants").Doc(f.plantID).Collection(name)
}

// decodeJSON unmarshals the "json" field of doc into v.
func decodeJSON(ctx context.Context, doc *firestore.DocumentSnapshot, kind string, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, kind+" doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return fmt.Errorf("%s document %s missing 'json' field: %w", kind, doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, kind+" doc json not string", slog.String("docID", doc.Ref.ID))
		return fmt.Errorf("%s document %s 'json' field is not string", kind, doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal "+kind, slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal %s (id=%s): %w", kind, doc.Ref.ID, err)
	}
	return nil
}

// UpsertDevice adds or updates a device in the "devices" collection keyed by
// its ID.
func (f *FirestoreProvider) UpsertDevice(ctx context.Context, device types.Device) error {
	if device.ID == "" {
		return ErrMissingDeviceID
	}
	jsonBytes, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}
	_, err = f.collection("devices").Doc(device.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", device.ID, err)
	}
	return nil
}

// ListDevices returns every device ordered by ID.
func (f *FirestoreProvider) ListDevices(ctx context.Context) ([]types.Device, error) {
	iter := f.collection("devices").OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var devices []types.Device
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating devices: %w", err)
		}
		var d types.Device
		if err := decodeJSON(ctx, doc, "device", &d); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// DeviceCount returns the number of devices.
func (f *FirestoreProvider) DeviceCount(ctx context.Context) (int, error) {
	refs, err := f.collection("devices").DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to list device refs: %w", err)
	}
	return len(refs), nil
}

// InsertReading stores a reading in the "readings" collection. The document
// ID is derived from the device and timestamp so a retried upload does not
// duplicate the reading.
func (f *FirestoreProvider) InsertReading(ctx context.Context, reading types.Reading) error {
	if err := validateReading(reading); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	if err := f.registerDevice(ctx, reading.DeviceID); err != nil {
		return err
	}
	docID := reading.DeviceID + "_" + reading.Timestamp.UTC().Format(time.RFC3339Nano)
	_, err = f.collection("readings").Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"deviceID":  reading.DeviceID,
		"timestamp": reading.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// registerDevice creates the device document unless it already exists.
func (f *FirestoreProvider) registerDevice(ctx context.Context, deviceID string) error {
	jsonBytes, err := json.Marshal(types.Device{ID: deviceID})
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}
	_, err = f.collection("devices").Doc(deviceID).Create(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("failed to register device %s: %w", deviceID, err)
	}
	return nil
}

// LatestReading returns the most recent reading of deviceID, or nil if the
// device has never reported.
func (f *FirestoreProvider) LatestReading(ctx context.Context, deviceID string) (*types.Reading, error) {
	iter := f.collection("readings").
		Where("deviceID", "==", deviceID).
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading for %s: %w", deviceID, err)
	}
	var r types.Reading
	if err := decodeJSON(ctx, doc, "reading", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ReadingsSince returns every reading with a timestamp at or after since,
// oldest first.
func (f *FirestoreProvider) ReadingsSince(ctx context.Context, since time.Time) ([]types.Reading, error) {
	iter := f.collection("readings").
		Where("timestamp", ">=", since).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var readings []types.Reading
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating readings: %w", err)
		}
		var r types.Reading
		if err := decodeJSON(ctx, doc, "reading", &r); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// UpsertForecastRecord stores the audit record of a day in the
// "forecast_history" collection. The document ID is the date so there is one
// record per day.
func (f *FirestoreProvider) UpsertForecastRecord(ctx context.Context, record types.ForecastRecord) error {
	if record.Date.IsZero() {
		return ErrMissingDate
	}
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast record: %w", err)
	}
	docID := record.Date.Format(forecastRecordDateLayout)
	_, err = f.collection("forecast_history").Doc(docID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
		"date": record.Date,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert forecast record: %w", err)
	}
	return nil
}

// ForecastHistory returns up to limit audit records dated before before,
// most recent first.
func (f *FirestoreProvider) ForecastHistory(ctx context.Context, before time.Time, limit int) ([]types.ForecastRecord, error) {
	iter := f.collection("forecast_history").
		Where("date", "<", before).
		OrderBy("date", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var records []types.ForecastRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("error iterating forecast history: %w", err)
		}
		var r types.ForecastRecord
		if err := decodeJSON(ctx, doc, "forecast record", &r); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
