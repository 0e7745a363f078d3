package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/device"
	"github.com/nerrad567/gray-logic-edge/internal/plugin"
	"github.com/nerrad567/gray-logic-edge/internal/shadow"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

// echoDriver stores written values and reads them back.
type echoDriver struct {
	mu     sync.Mutex
	values map[int64]protocol.Value
	reads  atomic.Int64
	writes atomic.Int64

	// delay stretches each call so dedup tests can overlap requests.
	delay time.Duration

	// clamp bounds written floats when set.
	clamp *float64
}

func newEchoDriver() *echoDriver {
	return &echoDriver{values: make(map[int64]protocol.Value)}
}

func (d *echoDriver) ReadPoint(ctx context.Context, req protocol.ReadRequest) (protocol.Value, error) {
	d.reads.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return protocol.Null(), protocol.ErrTimeout
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[req.PointID]
	if !ok {
		return protocol.Null(), protocol.ErrAddressNotFound
	}
	return v, nil
}

func (d *echoDriver) WritePoint(ctx context.Context, req protocol.WriteRequest) (protocol.Value, error) {
	d.writes.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return protocol.Null(), protocol.ErrTimeout
		}
	}
	v := req.Value
	if d.clamp != nil {
		if f, ok := v.AsFloat(); ok && f > *d.clamp {
			v = protocol.Float(*d.clamp)
		}
	}
	d.mu.Lock()
	d.values[req.PointID] = v
	d.mu.Unlock()
	return v, nil
}

func (d *echoDriver) Close() error { return nil }

// panicDriver panics on every call.
type panicDriver struct{}

func (panicDriver) ReadPoint(context.Context, protocol.ReadRequest) (protocol.Value, error) {
	panic("driver bug")
}

func (panicDriver) WritePoint(context.Context, protocol.WriteRequest) (protocol.Value, error) {
	panic("driver bug")
}

func (panicDriver) Close() error { return nil }

// staticPoints resolves point metadata from a map.
type staticPoints struct {
	points map[int64]device.PointWithProtocol
}

func (s *staticPoints) GetPointWithProtocol(_ context.Context, pointID int64) (*device.PointWithProtocol, error) {
	pt, ok := s.points[pointID]
	if !ok {
		return nil, device.ErrPointNotFound
	}
	return &pt, nil
}

func makePoint(id int64, proto string, dt protocol.DataType, mode protocol.AccessMode, mult float64, prec int) device.PointWithProtocol {
	return device.PointWithProtocol{
		Point: device.Point{
			ID:         id,
			DeviceID:   1,
			Name:       "pt",
			Address:    "addr",
			DataType:   dt,
			AccessMode: mode,
			Multiplier: mult,
			Precision:  prec,
		},
		ProtocolName: proto,
	}
}

type testEnv struct {
	engine   *Engine
	registry *plugin.Registry
	store    *shadow.Store
	driver   *echoDriver
	points   *staticPoints
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	registry := plugin.NewRegistry()
	driver := newEchoDriver()
	if err := registry.Register(plugin.Meta{Name: "echo", Kind: plugin.KindSystem}, driver); err != nil {
		t.Fatalf("registering echo driver: %v", err)
	}

	points := &staticPoints{points: make(map[int64]device.PointWithProtocol)}
	store := shadow.NewStore()
	return &testEnv{
		engine:   NewEngine(registry, points, store, cfg),
		registry: registry,
		store:    store,
		driver:   driver,
		points:   points,
	}
}

func TestWriteThenShadowRead(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "echo", protocol.DataTypeFloat64, protocol.AccessReadWrite, 1, 0)
	ctx := context.Background()

	got, err := env.engine.Write(ctx, pt, protocol.Float(21.5))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !got.Equal(protocol.Float(21.5)) {
		t.Errorf("Write() = %v, want 21.5", got)
	}

	// The follow-up shadow read must not hit the driver again.
	before := env.driver.reads.Load()
	v, err := env.engine.Read(ctx, pt, true)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !v.Equal(protocol.Float(21.5)) {
		t.Errorf("Read() = %v, want 21.5", v)
	}
	if env.driver.reads.Load() != before {
		t.Error("shadow read reached the driver")
	}
}

func TestRead_LiveBypassesShadow(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "echo", protocol.DataTypeInt32, protocol.AccessReadWrite, 1, 0)
	ctx := context.Background()

	if _, err := env.engine.Write(ctx, pt, protocol.Int(10)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Mutate the device behind the shadow's back.
	env.driver.mu.Lock()
	env.driver.values[1] = protocol.Int(99)
	env.driver.mu.Unlock()

	v, err := env.engine.Read(ctx, pt, false)
	if err != nil {
		t.Fatalf("Read(live) error = %v", err)
	}
	if !v.Equal(protocol.Int(99)) {
		t.Errorf("Read(live) = %v, want 99", v)
	}
}

func TestRead_StaleShadowFallsThrough(t *testing.T) {
	env := newTestEnv(t, Config{ShadowTTL: time.Minute})
	pt := makePoint(1, "echo", protocol.DataTypeInt32, protocol.AccessRead, 1, 0)
	env.driver.values[1] = protocol.Int(7)

	// Entry is older than the TTL.
	env.store.Put(1, protocol.Int(3), time.Now().Add(-2*time.Minute))

	v, err := env.engine.Read(context.Background(), pt, true)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !v.Equal(protocol.Int(7)) {
		t.Errorf("Read() = %v, want live 7", v)
	}
}

func TestRead_ScalesRawToEngineering(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "echo", protocol.DataTypeInt16, protocol.AccessRead, 0.1, 1)
	env.driver.values[1] = protocol.Int(215)

	v, err := env.engine.Read(context.Background(), pt, false)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !v.Equal(protocol.Float(21.5)) {
		t.Errorf("Read() = %v, want 21.5", v)
	}

	entry, ok := env.store.Get(1)
	if !ok || !entry.Value.Equal(protocol.Float(21.5)) {
		t.Errorf("shadow entry = %v, want 21.5", entry.Value)
	}
}

func TestWrite_ScalesEngineeringToRaw(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "echo", protocol.DataTypeInt16, protocol.AccessReadWrite, 0.1, 1)

	got, err := env.engine.Write(context.Background(), pt, protocol.Float(21.5))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !got.Equal(protocol.Float(21.5)) {
		t.Errorf("Write() = %v, want 21.5", got)
	}

	// The driver must have seen the raw integer.
	env.driver.mu.Lock()
	raw := env.driver.values[1]
	env.driver.mu.Unlock()
	if !raw.Equal(protocol.Int(215)) {
		t.Errorf("driver stored %v, want raw 215", raw)
	}
}

func TestWrite_ClampedValueLandsEverywhere(t *testing.T) {
	env := newTestEnv(t, Config{})
	limit := 100.0
	env.driver.clamp = &limit
	pt := makePoint(1, "echo", protocol.DataTypeFloat64, protocol.AccessReadWrite, 1, 0)

	got, err := env.engine.Write(context.Background(), pt, protocol.Float(150))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !got.Equal(protocol.Float(100)) {
		t.Errorf("Write() = %v, want clamped 100", got)
	}

	entry, ok := env.store.Get(1)
	if !ok || !entry.Value.Equal(protocol.Float(100)) {
		t.Errorf("shadow entry = %v, want clamped 100", entry.Value)
	}
}

func TestWrite_ReadOnlyPoint(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "echo", protocol.DataTypeFloat64, protocol.AccessRead, 1, 0)

	_, err := env.engine.Write(context.Background(), pt, protocol.Float(1))
	if !errors.Is(err, ErrAccessMode) {
		t.Errorf("Write() error = %v, want ErrAccessMode", err)
	}
	if _, ok := env.store.Get(1); ok {
		t.Error("shadow written despite access-mode failure")
	}
	if env.driver.writes.Load() != 0 {
		t.Error("driver called despite access-mode failure")
	}
}

func TestRead_WriteOnlyPoint(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "echo", protocol.DataTypeFloat64, protocol.AccessWrite, 1, 0)

	_, err := env.engine.Read(context.Background(), pt, false)
	if !errors.Is(err, ErrAccessMode) {
		t.Errorf("Read() error = %v, want ErrAccessMode", err)
	}
}

func TestWrite_TypeMismatch(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "echo", protocol.DataTypeBool, protocol.AccessReadWrite, 1, 0)

	_, err := env.engine.Write(context.Background(), pt, protocol.Float(1))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Write() error = %v, want ErrTypeMismatch", err)
	}
	if env.driver.writes.Load() != 0 {
		t.Error("driver called despite type mismatch")
	}
}

func TestDispatch_UnknownProtocol(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(1, "ghost_protocol", protocol.DataTypeInt32, protocol.AccessReadWrite, 1, 0)

	if _, err := env.engine.Read(context.Background(), pt, false); !errors.Is(err, ErrNoSuchProtocol) {
		t.Errorf("Read() error = %v, want ErrNoSuchProtocol", err)
	}
	if _, err := env.engine.Write(context.Background(), pt, protocol.Int(1)); !errors.Is(err, ErrNoSuchProtocol) {
		t.Errorf("Write() error = %v, want ErrNoSuchProtocol", err)
	}
	if env.store.Len() != 0 {
		t.Error("shadow touched for unknown protocol")
	}
}

func TestDriverError_WrapsDriverSentinel(t *testing.T) {
	env := newTestEnv(t, Config{})
	pt := makePoint(404, "echo", protocol.DataTypeInt32, protocol.AccessRead, 1, 0)

	_, err := env.engine.Read(context.Background(), pt, false)
	if !errors.Is(err, ErrDriverFailure) {
		t.Fatalf("Read() error = %v, want ErrDriverFailure", err)
	}
	if !errors.Is(err, protocol.ErrAddressNotFound) {
		t.Errorf("Read() error = %v, want wrapped ErrAddressNotFound", err)
	}

	var de *DriverError
	if !errors.As(err, &de) {
		t.Fatalf("Read() error = %T, want *DriverError", err)
	}
	if de.Protocol != "echo" || de.PointID != 404 {
		t.Errorf("DriverError context = %q/%d, want echo/404", de.Protocol, de.PointID)
	}
}

func TestDriverTimeout(t *testing.T) {
	env := newTestEnv(t, Config{DriverTimeout: 20 * time.Millisecond})
	env.driver.delay = time.Second
	env.driver.values[1] = protocol.Int(1)
	pt := makePoint(1, "echo", protocol.DataTypeInt32, protocol.AccessRead, 1, 0)

	_, err := env.engine.Read(context.Background(), pt, false)
	if !errors.Is(err, ErrDriverFailure) {
		t.Errorf("Read() error = %v, want ErrDriverFailure", err)
	}
	if env.store.Len() != 0 {
		t.Error("shadow written after timeout")
	}
}

func TestDriverPanicContained(t *testing.T) {
	env := newTestEnv(t, Config{})
	if err := env.registry.Register(plugin.Meta{Name: "broken"}, panicDriver{}); err != nil {
		t.Fatalf("registering panic driver: %v", err)
	}
	pt := makePoint(1, "broken", protocol.DataTypeInt32, protocol.AccessReadWrite, 1, 0)

	if _, err := env.engine.Read(context.Background(), pt, false); !errors.Is(err, ErrDriverFailure) {
		t.Errorf("Read() error = %v, want ErrDriverFailure", err)
	}
	if _, err := env.engine.Write(context.Background(), pt, protocol.Int(1)); !errors.Is(err, ErrDriverFailure) {
		t.Errorf("Write() error = %v, want ErrDriverFailure", err)
	}
}

func TestRead_ConcurrentSamePointDeduplicated(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.driver.delay = 50 * time.Millisecond
	env.driver.values[1] = protocol.Int(42)
	pt := makePoint(1, "echo", protocol.DataTypeInt32, protocol.AccessRead, 1, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := env.engine.Read(context.Background(), pt, false)
			if err != nil {
				t.Errorf("Read() error = %v", err)
				return
			}
			if !v.Equal(protocol.Int(42)) {
				t.Errorf("Read() = %v, want 42", v)
			}
		}()
	}
	wg.Wait()

	if n := env.driver.reads.Load(); n > 2 {
		t.Errorf("driver read %d times for 10 concurrent reads, want coalesced", n)
	}
}

func TestWrite_DistinctPointsDoNotSerialize(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.driver.delay = 30 * time.Millisecond

	var wg sync.WaitGroup
	start := time.Now()
	for i := int64(1); i <= 4; i++ {
		i := i
		pt := makePoint(i, "echo", protocol.DataTypeInt32, protocol.AccessReadWrite, 1, 0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.Write(context.Background(), pt, protocol.Int(i)); err != nil {
				t.Errorf("Write(%d) error = %v", i, err)
			}
		}()
	}
	wg.Wait()

	// Four serialized 30ms writes would take 120ms+.
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("4 concurrent writes took %v, expected parallel execution", elapsed)
	}
}

func TestReadPoint_UnknownPointPassthrough(t *testing.T) {
	env := newTestEnv(t, Config{})

	_, err := env.engine.ReadPoint(context.Background(), 999, false)
	if !errors.Is(err, device.ErrPointNotFound) {
		t.Errorf("ReadPoint(999) error = %v, want device.ErrPointNotFound", err)
	}
}

func TestWritePoint_ResolvesMetadata(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.points.points[5] = makePoint(5, "echo", protocol.DataTypeFloat64, protocol.AccessReadWrite, 1, 0)

	got, err := env.engine.WritePoint(context.Background(), 5, protocol.Float(3.5))
	if err != nil {
		t.Fatalf("WritePoint() error = %v", err)
	}
	if !got.Equal(protocol.Float(3.5)) {
		t.Errorf("WritePoint() = %v, want 3.5", got)
	}
}
