package forecast

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raterudder/pvcast/pkg/types"
)

// memStore is an in-memory Store for engine tests. errs injects a failure
// for the method with the matching name.
type memStore struct {
	mu       sync.Mutex
	devices  []types.Device
	readings []types.Reading
	records  []types.ForecastRecord
	errs     map[string]error
}

var _ Store = (*memStore)(nil)

func (m *memStore) err(method string) error {
	if m.errs == nil {
		return nil
	}
	return m.errs[method]
}

func (m *memStore) LatestReading(ctx context.Context, deviceID string) (*types.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("LatestReading"); err != nil {
		return nil, err
	}
	var latest *types.Reading
	for i, r := range m.readings {
		if r.DeviceID != deviceID {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = &m.readings[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) ReadingsSince(ctx context.Context, since time.Time) ([]types.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("ReadingsSince"); err != nil {
		return nil, err
	}
	var out []types.Reading
	for _, r := range m.readings {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListDevices(ctx context.Context) ([]types.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("ListDevices"); err != nil {
		return nil, err
	}
	return append([]types.Device(nil), m.devices...), nil
}

func (m *memStore) DeviceCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("DeviceCount"); err != nil {
		return 0, err
	}
	return len(m.devices), nil
}

func (m *memStore) ForecastHistory(ctx context.Context, before time.Time, limit int) ([]types.ForecastRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("ForecastHistory"); err != nil {
		return nil, err
	}
	var out []types.ForecastRecord
	for _, r := range m.records {
		if r.Date.Before(before) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpsertForecastRecord(ctx context.Context, record types.ForecastRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("UpsertForecastRecord"); err != nil {
		return err
	}
	for i, r := range m.records {
		if r.Date.Equal(record.Date) {
			m.records[i] = record
			return nil
		}
	}
	m.records = append(m.records, record)
	return nil
}

// reading returns a reading whose power is exactly kw.
func reading(deviceID string, ts time.Time, kw float64) types.Reading {
	return types.Reading{
		DeviceID:  deviceID,
		Timestamp: ts,
		VoltageV:  1000,
		CurrentA:  kw,
	}
}

func newTestEngine(store Store) *Engine {
	e := New(store, NewFactor())
	e.location = time.UTC
	return e
}
