package plugin

import "errors"

// Domain errors for the plugin package. Check them with errors.Is().
var (
	// ErrDuplicateProtocol is returned by Register when the protocol name
	// is already taken. Use Replace to swap a live driver.
	ErrDuplicateProtocol = errors.New("plugin: protocol already registered")

	// ErrProtocolNotFound is returned when no driver owns the requested
	// protocol name.
	ErrProtocolNotFound = errors.New("plugin: protocol not found")

	// ErrArtifactNotFound is returned when the plugin path does not point
	// at a regular file.
	ErrArtifactNotFound = errors.New("plugin: artifact not found")

	// ErrBadExtension is returned when the plugin path does not carry the
	// platform shared-object extension.
	ErrBadExtension = errors.New("plugin: artifact is not a shared object")

	// ErrOutsideDir is returned when directory restriction is on and the
	// plugin path resolves outside the configured plugin directory.
	ErrOutsideDir = errors.New("plugin: artifact outside plugin directory")

	// ErrBadSymbol is returned when the plugin module loads but does not
	// export a usable driver factory.
	ErrBadSymbol = errors.New("plugin: missing or invalid driver factory")
)
