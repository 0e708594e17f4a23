package inventory

import (
	"context"
	"sync"
)

// DeviceRecord is one materialized device as produced by the collection
// layer. The visualization core treats records as read-only input.
type DeviceRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	DeviceType string         `json:"device_type,omitempty"`
	Status     string         `json:"status,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	Vendor     string         `json:"vendor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Source lists the current device records plus a total count.
type Source interface {
	ListDevices(ctx context.Context) ([]DeviceRecord, int, error)
}

// Sink accepts records pushed in by the collection layer.
type Sink interface {
	UpsertDevice(ctx context.Context, rec DeviceRecord) error
}

// StaticSource is an in-memory Source/Sink used when no database is
// configured, and by tests. The record slice is replaced wholesale on
// Set; readers never observe a partial update.
type StaticSource struct {
	mu      sync.RWMutex
	devices []DeviceRecord
	index   map[string]int
}

func NewStaticSource(devices ...DeviceRecord) *StaticSource {
	s := &StaticSource{}
	s.Set(devices)
	return s
}

func (s *StaticSource) Set(devices []DeviceRecord) {
	cp := make([]DeviceRecord, len(devices))
	copy(cp, devices)
	idx := make(map[string]int, len(cp))
	for i, d := range cp {
		idx[d.ID] = i
	}

	s.mu.Lock()
	s.devices = cp
	s.index = idx
	s.mu.Unlock()
}

func (s *StaticSource) ListDevices(_ context.Context) ([]DeviceRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DeviceRecord, len(s.devices))
	copy(out, s.devices)
	return out, len(out), nil
}

func (s *StaticSource) UpsertDevice(_ context.Context, rec DeviceRecord) error {
	if rec.ID == "" {
		return ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[rec.ID]; ok {
		s.devices[i] = rec
		return nil
	}
	s.index[rec.ID] = len(s.devices)
	s.devices = append(s.devices, rec)
	return nil
}
