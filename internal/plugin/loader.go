package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"
	"strings"

	"github.com/nerrad567/gray-logic-edge/protocol"
)

// soExtension is the shared-object suffix the Go plugin runtime produces.
const soExtension = ".so"

// Logger is the minimal logging interface the loader needs. It is satisfied
// by *logging.Logger and by *slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Loader validates and loads custom driver modules into a registry.
//
// Validation happens before the module is opened: the artifact must be a
// regular file carrying the shared-object extension, and when directory
// restriction is on it must live under the configured plugin directory.
// Opening a module is irreversible in-process, so rejecting bad paths first
// is the only cheap failure mode.
type Loader struct {
	registry *Registry
	dir      string
	restrict bool
	logger   Logger
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Dir is the plugin directory. Relative artifact paths resolve
	// against it.
	Dir string

	// RestrictToDir rejects artifacts whose resolved path escapes Dir.
	RestrictToDir bool
}

// NewLoader creates a loader that installs drivers into the registry.
func NewLoader(registry *Registry, cfg LoaderConfig) *Loader {
	return &Loader{
		registry: registry,
		dir:      cfg.Dir,
		restrict: cfg.RestrictToDir,
		logger:   noopLogger{},
	}
}

// SetLogger installs a logger. The default discards everything.
func (l *Loader) SetLogger(logger Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// RegisterBuiltin installs a compiled-in driver under a protocol name.
// Builtin drivers skip artifact validation; they have no module on disk.
func (l *Loader) RegisterBuiltin(name, description string, factory protocol.Factory) error {
	driver, err := factory()
	if err != nil {
		return fmt.Errorf("constructing builtin driver %q: %w", name, err)
	}

	meta := Meta{Name: name, Kind: KindSystem, Description: description}
	if err := l.registry.Register(meta, driver); err != nil {
		_ = driver.Close() //nolint:errcheck // Best-effort cleanup on failed registration
		return err
	}
	l.logger.Info("registered builtin protocol driver", "protocol", name)
	return nil
}

// Load validates the artifact at path, opens it, resolves the driver
// factory, and registers the driver under name. The returned handle is the
// live registry entry.
func (l *Loader) Load(name, path, description string) (*Handle, error) {
	resolved, err := l.Validate(path)
	if err != nil {
		return nil, err
	}

	factory, err := openFactory(resolved)
	if err != nil {
		return nil, err
	}

	driver, err := factory()
	if err != nil {
		return nil, fmt.Errorf("constructing driver %q: %w", name, err)
	}

	meta := Meta{Name: name, Path: path, Kind: KindCustom, Description: description}
	if err := l.registry.Register(meta, driver); err != nil {
		_ = driver.Close() //nolint:errcheck // Best-effort cleanup on failed registration
		return nil, err
	}

	l.logger.Info("loaded protocol driver module",
		"protocol", name, "path", resolved)
	return &Handle{meta: meta, driver: driver}, nil
}

// Reload hot-swaps the driver for an already registered protocol name with a
// fresh instance from the artifact at path. The displaced driver is closed;
// in-flight requests holding its handle finish against it first.
func (l *Loader) Reload(name, path, description string) (*Handle, error) {
	resolved, err := l.Validate(path)
	if err != nil {
		return nil, err
	}

	factory, err := openFactory(resolved)
	if err != nil {
		return nil, err
	}

	driver, err := factory()
	if err != nil {
		return nil, fmt.Errorf("constructing driver %q: %w", name, err)
	}

	meta := Meta{Name: name, Path: path, Kind: KindCustom, Description: description}
	old, err := l.registry.Replace(meta, driver)
	if err != nil {
		_ = driver.Close() //nolint:errcheck // Best-effort cleanup on failed swap
		return nil, err
	}
	if err := old.Close(); err != nil {
		l.logger.Warn("closing displaced driver", "protocol", name, "error", err)
	}

	l.logger.Info("replaced protocol driver module",
		"protocol", name, "path", resolved)
	return &Handle{meta: meta, driver: driver}, nil
}

// Validate checks a plugin artifact path without opening it and returns the
// resolved absolute path.
func (l *Loader) Validate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrArtifactNotFound)
	}
	if !strings.HasSuffix(path, soExtension) {
		return "", fmt.Errorf("%w: %q (want %s)", ErrBadExtension, path, soExtension)
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(l.dir, resolved)
	}
	resolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving plugin path: %w", err)
	}

	if l.restrict {
		dir, err := filepath.Abs(l.dir)
		if err != nil {
			return "", fmt.Errorf("resolving plugin directory: %w", err)
		}
		rel, err := filepath.Rel(dir, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %q", ErrOutsideDir, path)
		}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrArtifactNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q is not a regular file", ErrArtifactNotFound, path)
	}
	return resolved, nil
}

// openFactory opens a shared object and resolves its driver factory symbol.
func openFactory(path string) (protocol.Factory, error) {
	mod, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin module %q: %w", path, err)
	}

	sym, err := mod.Lookup(protocol.EntrySymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %q does not export %s", ErrBadSymbol, path, protocol.EntrySymbol)
	}

	// Lookup returns the func directly for func declarations and a pointer
	// for var declarations; accept both.
	switch f := sym.(type) {
	case protocol.Factory:
		return f, nil
	case *protocol.Factory:
		return *f, nil
	default:
		return nil, fmt.Errorf("%w: %s in %q has type %T", ErrBadSymbol, protocol.EntrySymbol, path, sym)
	}
}
