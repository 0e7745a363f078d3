package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/gray-logic-edge/internal/device"
	"github.com/nerrad567/gray-logic-edge/internal/plugin"
	"github.com/nerrad567/gray-logic-edge/internal/shadow"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

// Logger is the minimal logging interface the engine needs. It is
// satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder receives every value the engine commits to the shadow. Used to
// feed the history sink; failures are the recorder's problem, never the
// request's.
type Recorder interface {
	RecordValue(pt device.PointWithProtocol, v protocol.Value, at time.Time)
}

// Publisher receives every committed value for live distribution (the
// websocket stream).
type Publisher interface {
	PublishValue(pointID int64, v protocol.Value, at time.Time)
}

// PointResolver is the slice of the device repository the engine needs:
// point metadata joined with the owning protocol name.
type PointResolver interface {
	GetPointWithProtocol(ctx context.Context, pointID int64) (*device.PointWithProtocol, error)
}

// Config carries the engine's tunables.
type Config struct {
	// DriverTimeout bounds each driver call. Zero means DefaultDriverTimeout.
	DriverTimeout time.Duration

	// ShadowTTL is how long a shadow entry satisfies a non-live read.
	// Zero means DefaultShadowTTL.
	ShadowTTL time.Duration
}

// Engine defaults.
const (
	DefaultDriverTimeout = 5 * time.Second
	DefaultShadowTTL     = 30 * time.Second
)

// Engine routes point reads and writes to the owning protocol driver.
//
// The engine owns everything the drivers must not: access-mode checks,
// value typing, raw/engineering scaling, the shadow cache, and bounding
// each driver call with a timeout. Drivers only move raw values.
type Engine struct {
	registry *plugin.Registry
	devices  PointResolver
	shadow   *shadow.Store

	timeout time.Duration
	ttl     time.Duration

	// reads deduplicates concurrent live reads of the same point.
	reads singleflight.Group

	recorder  Recorder
	publisher Publisher
	logger    Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewEngine creates a dispatch engine over the registry, metadata
// repository, and shadow store.
func NewEngine(registry *plugin.Registry, devices PointResolver, store *shadow.Store, cfg Config) *Engine {
	if cfg.DriverTimeout <= 0 {
		cfg.DriverTimeout = DefaultDriverTimeout
	}
	if cfg.ShadowTTL <= 0 {
		cfg.ShadowTTL = DefaultShadowTTL
	}
	return &Engine{
		registry: registry,
		devices:  devices,
		shadow:   store,
		timeout:  cfg.DriverTimeout,
		ttl:      cfg.ShadowTTL,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger installs a logger. The default discards everything.
func (e *Engine) SetLogger(l Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetRecorder installs the history sink. Nil disables recording.
func (e *Engine) SetRecorder(r Recorder) { e.recorder = r }

// SetPublisher installs the live value publisher. Nil disables publishing.
func (e *Engine) SetPublisher(p Publisher) { e.publisher = p }

// Shadow exposes the engine's shadow store for read-only consumers.
func (e *Engine) Shadow() *shadow.Store { return e.shadow }

// ReadPoint resolves point metadata by ID and reads its value. Repository
// errors (unknown point) pass through unchanged.
func (e *Engine) ReadPoint(ctx context.Context, pointID int64, useShadow bool) (protocol.Value, error) {
	pt, err := e.devices.GetPointWithProtocol(ctx, pointID)
	if err != nil {
		return protocol.Null(), err
	}
	return e.Read(ctx, *pt, useShadow)
}

// WritePoint resolves point metadata by ID and writes a value.
func (e *Engine) WritePoint(ctx context.Context, pointID int64, v protocol.Value) (protocol.Value, error) {
	pt, err := e.devices.GetPointWithProtocol(ctx, pointID)
	if err != nil {
		return protocol.Null(), err
	}
	return e.Write(ctx, *pt, v)
}

// Read returns the point's value in engineering units.
//
// With useShadow, a fresh shadow entry short-circuits without touching the
// field bus. Otherwise the read goes to the driver; concurrent live reads
// of the same point share one driver call.
func (e *Engine) Read(ctx context.Context, pt device.PointWithProtocol, useShadow bool) (protocol.Value, error) {
	if useShadow {
		if entry, ok := e.shadow.Get(pt.ID); ok && entry.Fresh(e.now(), e.ttl) {
			return entry.Value, nil
		}
	}

	if !pt.AccessMode.CanRead() {
		return protocol.Null(), fmt.Errorf("%w: point %d is %s", ErrAccessMode, pt.ID, pt.AccessMode)
	}

	handle, err := e.resolve(pt.ProtocolName)
	if err != nil {
		return protocol.Null(), err
	}

	v, err, _ := e.reads.Do(strconv.FormatInt(pt.ID, 10), func() (any, error) {
		raw, err := e.callRead(ctx, handle.Driver(), pt)
		if err != nil {
			return nil, err
		}
		return e.commit(pt, raw), nil
	})
	if err != nil {
		return protocol.Null(), err
	}
	return v.(protocol.Value), nil
}

// Write sends a value (engineering units) to the point and returns the
// value the driver actually committed, re-scaled to engineering units. A
// driver that clamps or quantises is reflected in both the result and the
// shadow.
func (e *Engine) Write(ctx context.Context, pt device.PointWithProtocol, v protocol.Value) (protocol.Value, error) {
	if !v.Matches(pt.DataType) {
		return protocol.Null(), fmt.Errorf("%w: point %d wants %s, got %s",
			ErrTypeMismatch, pt.ID, pt.DataType, v.Kind())
	}
	if !pt.AccessMode.CanWrite() {
		return protocol.Null(), fmt.Errorf("%w: point %d is %s", ErrAccessMode, pt.ID, pt.AccessMode)
	}

	handle, err := e.resolve(pt.ProtocolName)
	if err != nil {
		return protocol.Null(), err
	}

	raw := toRaw(v, pt.Point)
	committed, err := e.callWrite(ctx, handle.Driver(), pt, raw)
	if err != nil {
		return protocol.Null(), err
	}
	return e.commit(pt, committed), nil
}

// resolve maps a protocol name to its registry handle.
func (e *Engine) resolve(name string) (*plugin.Handle, error) {
	handle, err := e.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchProtocol, name)
	}
	return handle, nil
}

// commit converts a raw driver value to engineering units, updates the
// shadow, and fans out to the recorder and publisher.
func (e *Engine) commit(pt device.PointWithProtocol, raw protocol.Value) protocol.Value {
	eng := toEngineering(raw, pt.Point)
	at := e.now()

	if !e.shadow.Put(pt.ID, eng, at) {
		e.logger.Debug("shadow rejected stale observation", "point_id", pt.ID)
	}
	if e.recorder != nil {
		e.recorder.RecordValue(pt, eng, at)
	}
	if e.publisher != nil {
		e.publisher.PublishValue(pt.ID, eng, at)
	}
	return eng
}

// callRead runs one bounded driver read with panic containment.
func (e *Engine) callRead(ctx context.Context, drv protocol.Driver, pt device.PointWithProtocol) (v protocol.Value, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	defer e.contain(pt, &err)

	v, err = drv.ReadPoint(ctx, pt.ReadRequest())
	if err != nil {
		err = &DriverError{Protocol: pt.ProtocolName, PointID: pt.ID, Err: err}
	}
	return v, err
}

// callWrite runs one bounded driver write with panic containment.
func (e *Engine) callWrite(ctx context.Context, drv protocol.Driver, pt device.PointWithProtocol, raw protocol.Value) (v protocol.Value, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	defer e.contain(pt, &err)

	v, err = drv.WritePoint(ctx, pt.WriteRequest(raw))
	if err != nil {
		err = &DriverError{Protocol: pt.ProtocolName, PointID: pt.ID, Err: err}
	}
	return v, err
}

// contain recovers a driver panic and surfaces it as a DriverError, so one
// misbehaving driver degrades to per-request failures instead of taking
// the gateway down.
func (e *Engine) contain(pt device.PointWithProtocol, err *error) {
	if r := recover(); r != nil {
		e.logger.Error("driver panicked",
			"protocol", pt.ProtocolName, "point_id", pt.ID, "panic", r)
		*err = &DriverError{
			Protocol: pt.ProtocolName,
			PointID:  pt.ID,
			Err:      fmt.Errorf("panic: %v", r),
		}
	}
}
