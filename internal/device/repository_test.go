package device

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-edge/protocol"
)

const testSchema = `
CREATE TABLE devices (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT NOT NULL,
    device_type   TEXT NOT NULL,
    custom_data   TEXT NOT NULL DEFAULT '{}',
    protocol_name TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);
CREATE TABLE points (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id   INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    address     TEXT NOT NULL,
    data_type   TEXT NOT NULL,
    access_mode TEXT NOT NULL,
    multiplier  REAL NOT NULL DEFAULT 1.0,
    precision   INTEGER NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    part_number TEXT,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
`

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("applying test schema: %v", err)
	}
	return NewSQLiteRepository(db)
}

func testDevice() *Device {
	return &Device{
		Name:         "Boiler Room Meter",
		DeviceType:   "energy_meter",
		CustomData:   map[string]any{"rated_amps": float64(63)},
		ProtocolName: "modbus_tcp",
	}
}

func testPoint(deviceID int64) *Point {
	return &Point{
		DeviceID:   deviceID,
		Name:       "active_power",
		Address:    "hr:3054",
		DataType:   protocol.DataTypeFloat32,
		AccessMode: protocol.AccessRead,
		Multiplier: 0.1,
		Precision:  1,
	}
}

func TestCreateAndGetDevice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := testDevice()
	if err := repo.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.ID == 0 {
		t.Fatal("CreateDevice() did not assign an ID")
	}

	got, err := repo.GetDevice(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != d.Name || got.ProtocolName != d.ProtocolName {
		t.Errorf("GetDevice() = %q/%q, want %q/%q",
			got.Name, got.ProtocolName, d.Name, d.ProtocolName)
	}
	if got.CustomData["rated_amps"] != float64(63) {
		t.Errorf("custom_data round trip = %v, want 63", got.CustomData["rated_amps"])
	}
	if got.CreatedAt.IsZero() {
		t.Error("GetDevice() returned zero created_at")
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetDevice(context.Background(), 999)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice(999) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestUpdateDevice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := testDevice()
	if err := repo.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	d.Name = "Main Incomer"
	if err := repo.UpdateDevice(ctx, d); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}

	got, err := repo.GetDevice(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Main Incomer" {
		t.Errorf("after update Name = %q, want %q", got.Name, "Main Incomer")
	}

	missing := testDevice()
	missing.ID = 999
	if err := repo.UpdateDevice(ctx, missing); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UpdateDevice(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestDeleteDevice_CascadesPoints(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := testDevice()
	if err := repo.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	p := testPoint(d.ID)
	if err := repo.CreatePoint(ctx, p); err != nil {
		t.Fatalf("CreatePoint() error = %v", err)
	}

	if err := repo.DeleteDevice(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}

	if _, err := repo.GetPoint(ctx, p.ID); !errors.Is(err, ErrPointNotFound) {
		t.Errorf("GetPoint() after device delete error = %v, want ErrPointNotFound", err)
	}
}

func TestListDevicesByProtocol(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, proto := range []string{"modbus_tcp", "modbus_tcp", "bacnet_ip"} {
		d := testDevice()
		d.ProtocolName = proto
		if err := repo.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	devices, err := repo.ListDevicesByProtocol(ctx, "modbus_tcp")
	if err != nil {
		t.Fatalf("ListDevicesByProtocol() error = %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("ListDevicesByProtocol() returned %d devices, want 2", len(devices))
	}
}

func TestGetDeviceDetails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := testDevice()
	if err := repo.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.CreatePoint(ctx, testPoint(d.ID)); err != nil {
			t.Fatalf("CreatePoint() error = %v", err)
		}
	}

	got, err := repo.GetDeviceDetails(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDeviceDetails() error = %v", err)
	}
	if len(got.Points) != 3 {
		t.Errorf("GetDeviceDetails() returned %d points, want 3", len(got.Points))
	}
}

func TestCreatePoint_MissingDevice(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.CreatePoint(context.Background(), testPoint(999))
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("CreatePoint(orphan) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestUpdateAndDeletePoint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := testDevice()
	if err := repo.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	p := testPoint(d.ID)
	if err := repo.CreatePoint(ctx, p); err != nil {
		t.Fatalf("CreatePoint() error = %v", err)
	}

	pn := "EM-210"
	p.PartNumber = &pn
	p.AccessMode = protocol.AccessReadWrite
	if err := repo.UpdatePoint(ctx, p); err != nil {
		t.Fatalf("UpdatePoint() error = %v", err)
	}

	got, err := repo.GetPoint(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPoint() error = %v", err)
	}
	if got.PartNumber == nil || *got.PartNumber != "EM-210" {
		t.Errorf("PartNumber = %v, want EM-210", got.PartNumber)
	}
	if got.AccessMode != protocol.AccessReadWrite {
		t.Errorf("AccessMode = %q, want read_write", got.AccessMode)
	}

	if err := repo.DeletePoint(ctx, p.ID); err != nil {
		t.Fatalf("DeletePoint() error = %v", err)
	}
	if err := repo.DeletePoint(ctx, p.ID); !errors.Is(err, ErrPointNotFound) {
		t.Errorf("DeletePoint() second call error = %v, want ErrPointNotFound", err)
	}
}

func TestGetPointWithProtocol(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := testDevice()
	if err := repo.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	p := testPoint(d.ID)
	if err := repo.CreatePoint(ctx, p); err != nil {
		t.Fatalf("CreatePoint() error = %v", err)
	}

	got, err := repo.GetPointWithProtocol(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPointWithProtocol() error = %v", err)
	}
	if got.ProtocolName != "modbus_tcp" {
		t.Errorf("ProtocolName = %q, want modbus_tcp", got.ProtocolName)
	}
	if got.Address != p.Address {
		t.Errorf("Address = %q, want %q", got.Address, p.Address)
	}

	req := got.ReadRequest()
	if req.PointID != p.ID || req.Address != p.Address || req.DataType != p.DataType {
		t.Errorf("ReadRequest() = %+v, fields do not match point", req)
	}

	if _, err := repo.GetPointWithProtocol(ctx, 999); !errors.Is(err, ErrPointNotFound) {
		t.Errorf("GetPointWithProtocol(999) error = %v, want ErrPointNotFound", err)
	}
}
