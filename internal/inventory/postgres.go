package inventory

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMissingID = errors.New("device record has no id")

// Store is the Postgres-backed device inventory. It holds the
// collection layer's materialized records; topology data itself is
// never persisted.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const listDevicesSQL = `
SELECT id, name, device_type, status, ip_address, vendor, metadata
FROM devices
ORDER BY id
`

func (s *Store) ListDevices(ctx context.Context) ([]DeviceRecord, int, error) {
	rows, err := s.pool.Query(ctx, listDevicesSQL)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []DeviceRecord
	for rows.Next() {
		var (
			rec        DeviceRecord
			name       *string
			deviceType *string
			status     *string
			ip         *string
			vendor     *string
			metadata   []byte
		)
		if err := rows.Scan(&rec.ID, &name, &deviceType, &status, &ip, &vendor, &metadata); err != nil {
			return nil, 0, err
		}
		rec.Name = deref(name)
		rec.DeviceType = deref(deviceType)
		rec.Status = deref(status)
		rec.IPAddress = deref(ip)
		rec.Vendor = deref(vendor)
		if len(metadata) > 0 {
			// Malformed metadata is tolerated; the record still renders.
			_ = json.Unmarshal(metadata, &rec.Metadata)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, len(out), nil
}

const upsertDeviceSQL = `
INSERT INTO devices (id, name, device_type, status, ip_address, vendor, metadata, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  device_type = EXCLUDED.device_type,
  status = EXCLUDED.status,
  ip_address = EXCLUDED.ip_address,
  vendor = EXCLUDED.vendor,
  metadata = EXCLUDED.metadata,
  updated_at = now()
`

func (s *Store) UpsertDevice(ctx context.Context, rec DeviceRecord) error {
	if rec.ID == "" {
		return ErrMissingID
	}

	var metadata []byte
	if rec.Metadata != nil {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		metadata = b
	}

	_, err := s.pool.Exec(ctx, upsertDeviceSQL,
		rec.ID,
		nullable(rec.Name),
		nullable(rec.DeviceType),
		nullable(rec.Status),
		nullable(rec.IPAddress),
		nullable(rec.Vendor),
		metadata,
	)
	return err
}

const getDeviceSQL = `
SELECT id, name, device_type, status, ip_address, vendor, metadata
FROM devices
WHERE id = $1
`

func (s *Store) GetDevice(ctx context.Context, id string) (DeviceRecord, error) {
	var (
		rec        DeviceRecord
		name       *string
		deviceType *string
		status     *string
		ip         *string
		vendor     *string
		metadata   []byte
	)
	err := s.pool.QueryRow(ctx, getDeviceSQL, id).
		Scan(&rec.ID, &name, &deviceType, &status, &ip, &vendor, &metadata)
	if err != nil {
		return DeviceRecord{}, err
	}
	rec.Name = deref(name)
	rec.DeviceType = deref(deviceType)
	rec.Status = deref(status)
	rec.IPAddress = deref(ip)
	rec.Vendor = deref(vendor)
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &rec.Metadata)
	}
	return rec, nil
}

// IsNotFound reports whether err means the device row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
