package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device and point persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetDevice retrieves a device by ID, without its points.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetDevice(ctx context.Context, id int64) (*Device, error)

	// GetDeviceDetails retrieves a device with its points populated.
	GetDeviceDetails(ctx context.Context, id int64) (*Device, error)

	// ListDevices retrieves all devices, without points.
	ListDevices(ctx context.Context) ([]Device, error)

	// ListDevicesByProtocol retrieves all devices owned by a protocol.
	ListDevicesByProtocol(ctx context.Context, protocolName string) ([]Device, error)

	// CreateDevice inserts a new device and assigns its ID.
	CreateDevice(ctx context.Context, d *Device) error

	// UpdateDevice modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	UpdateDevice(ctx context.Context, d *Device) error

	// DeleteDevice removes a device and, via cascade, its points.
	DeleteDevice(ctx context.Context, id int64) error

	// GetPoint retrieves a point by ID.
	// Returns ErrPointNotFound if the point does not exist.
	GetPoint(ctx context.Context, id int64) (*Point, error)

	// ListDevicePoints retrieves all points of a device.
	ListDevicePoints(ctx context.Context, deviceID int64) ([]Point, error)

	// CreatePoint inserts a new point and assigns its ID.
	// Returns ErrDeviceNotFound if the owning device does not exist.
	CreatePoint(ctx context.Context, p *Point) error

	// UpdatePoint modifies an existing point.
	UpdatePoint(ctx context.Context, p *Point) error

	// DeletePoint removes a point by ID.
	DeletePoint(ctx context.Context, id int64) error

	// GetPointWithProtocol retrieves a point joined with its owning
	// device's protocol name. This is the dispatch engine's lookup.
	GetPointWithProtocol(ctx context.Context, pointID int64) (*PointWithProtocol, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the schema applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = "id, name, device_type, custom_data, protocol_name, created_at, updated_at"

const pointColumns = "id, device_id, name, address, data_type, access_mode, multiplier, precision, description, part_number, created_at, updated_at"

// GetDevice retrieves a device by ID, without its points.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id int64) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// GetDeviceDetails retrieves a device with its points populated.
func (r *SQLiteRepository) GetDeviceDetails(ctx context.Context, id int64) (*Device, error) {
	d, err := r.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	points, err := r.ListDevicePoints(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Points = points
	return d, nil
}

// ListDevices retrieves all devices, without points, ordered by name.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx,
		"SELECT "+deviceColumns+" FROM devices ORDER BY name")
}

// ListDevicesByProtocol retrieves all devices owned by a protocol.
func (r *SQLiteRepository) ListDevicesByProtocol(ctx context.Context, protocolName string) ([]Device, error) {
	return r.queryDevices(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE protocol_name = ? ORDER BY name",
		protocolName)
}

// CreateDevice inserts a new device and assigns its ID.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}

	customData, err := marshalCustomData(d.CustomData)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (name, device_type, custom_data, protocol_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.Name, d.DeviceType, customData, d.ProtocolName,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}

	d.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading device id: %w", err)
	}
	return nil
}

// UpdateDevice modifies an existing device.
func (r *SQLiteRepository) UpdateDevice(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}

	customData, err := marshalCustomData(d.CustomData)
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, device_type = ?, custom_data = ?, protocol_name = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, d.DeviceType, customData, d.ProtocolName,
		formatTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	return requireAffected(res, ErrDeviceNotFound)
}

// DeleteDevice removes a device and, via cascade, its points.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireAffected(res, ErrDeviceNotFound)
}

// GetPoint retrieves a point by ID.
func (r *SQLiteRepository) GetPoint(ctx context.Context, id int64) (*Point, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+pointColumns+" FROM points WHERE id = ?", id)

	p, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("querying point by id: %w", err)
	}
	return p, nil
}

// ListDevicePoints retrieves all points of a device, ordered by id.
func (r *SQLiteRepository) ListDevicePoints(ctx context.Context, deviceID int64) ([]Point, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+pointColumns+" FROM points WHERE device_id = ? ORDER BY id", deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying device points: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var points []Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}

// CreatePoint inserts a new point and assigns its ID.
func (r *SQLiteRepository) CreatePoint(ctx context.Context, p *Point) error {
	if err := ValidatePoint(p); err != nil {
		return err
	}

	// Foreign key violations surface as generic driver errors; check the
	// device explicitly so callers get ErrDeviceNotFound.
	if _, err := r.GetDevice(ctx, p.DeviceID); err != nil {
		return err
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO points (device_id, name, address, data_type, access_mode, multiplier, precision, description, part_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.DeviceID, p.Name, p.Address, string(p.DataType), string(p.AccessMode),
		p.Multiplier, p.Precision, p.Description, p.PartNumber,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting point: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading point id: %w", err)
	}
	return nil
}

// UpdatePoint modifies an existing point.
func (r *SQLiteRepository) UpdatePoint(ctx context.Context, p *Point) error {
	if err := ValidatePoint(p); err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE points
		SET name = ?, address = ?, data_type = ?, access_mode = ?, multiplier = ?, precision = ?, description = ?, part_number = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Address, string(p.DataType), string(p.AccessMode),
		p.Multiplier, p.Precision, p.Description, p.PartNumber,
		formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating point: %w", err)
	}

	return requireAffected(res, ErrPointNotFound)
}

// DeletePoint removes a point by ID.
func (r *SQLiteRepository) DeletePoint(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM points WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting point: %w", err)
	}
	return requireAffected(res, ErrPointNotFound)
}

// GetPointWithProtocol retrieves a point joined with its owning device's
// protocol name.
func (r *SQLiteRepository) GetPointWithProtocol(ctx context.Context, pointID int64) (*PointWithProtocol, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT points.id, points.device_id, points.name, points.address,
			points.data_type, points.access_mode, points.multiplier, points.precision,
			points.description, points.part_number, points.created_at, points.updated_at,
			devices.protocol_name
		FROM points
		JOIN devices ON points.device_id = devices.id
		WHERE points.id = ?`, pointID)

	var (
		p          Point
		partNumber sql.NullString
		createdAt  string
		updatedAt  string
		protoName  string
	)
	err := row.Scan(&p.ID, &p.DeviceID, &p.Name, &p.Address,
		&p.DataType, &p.AccessMode, &p.Multiplier, &p.Precision,
		&p.Description, &partNumber, &createdAt, &updatedAt, &protoName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("querying point with protocol: %w", err)
	}

	if partNumber.Valid {
		p.PartNumber = &partNumber.String
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	return &PointWithProtocol{Point: p, ProtocolName: protoName}, nil
}

// queryDevices runs a device query and scans all rows.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans one device row.
func scanDevice(row rowScanner) (*Device, error) {
	var (
		d          Device
		customData string
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.DeviceType, &customData,
		&d.ProtocolName, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(customData), &d.CustomData); err != nil {
		return nil, fmt.Errorf("decoding custom_data: %w", err)
	}
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// scanPoint scans one point row.
func scanPoint(row rowScanner) (*Point, error) {
	var (
		p          Point
		partNumber sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&p.ID, &p.DeviceID, &p.Name, &p.Address,
		&p.DataType, &p.AccessMode, &p.Multiplier, &p.Precision,
		&p.Description, &partNumber, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if partNumber.Valid {
		p.PartNumber = &partNumber.String
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// marshalCustomData encodes the custom data blob, defaulting to "{}".
func marshalCustomData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encoding custom_data: %w", err)
	}
	return string(b), nil
}

// requireAffected maps zero affected rows to the given not-found error.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// parseTime decodes a stored timestamp. The format is controlled by this
// package, so parse failures yield the zero time rather than an error.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // Format is controlled
	return t
}
