package storagemock

import (
	"context"
	"time"

	"github.com/raterudder/pvcast/pkg/storage"
	"github.com/raterudder/pvcast/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) ListDevices(ctx context.Context) ([]types.Device, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).([]types.Device), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) DeviceCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Int(0), args.Error(1)
	}
	return 0, nil
}

func (m *MockDatabase) UpsertDevice(ctx context.Context, device types.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDatabase) InsertReading(ctx context.Context, reading types.Reading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

func (m *MockDatabase) LatestReading(ctx context.Context, deviceID string) (*types.Reading, error) {
	args := m.Called(ctx, deviceID)
	if len(args) > 0 {
		return args.Get(0).(*types.Reading), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) ReadingsSince(ctx context.Context, since time.Time) ([]types.Reading, error) {
	args := m.Called(ctx, since)
	if len(args) > 0 {
		return args.Get(0).([]types.Reading), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) UpsertForecastRecord(ctx context.Context, record types.ForecastRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDatabase) ForecastHistory(ctx context.Context, before time.Time, limit int) ([]types.ForecastRecord, error) {
	args := m.Called(ctx, before, limit)
	if len(args) > 0 {
		return args.Get(0).([]types.ForecastRecord), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
