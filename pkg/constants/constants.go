// Package constants provides shared constants used throughout the enginelink codebase.
// This includes timeouts, limits, well-known names and other configuration values
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the base transport timeout applied to every backend request.
	// Operations do not define their own timeouts; this is the only bound.
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout is how long the CLI waits for a graceful disconnect
	ShutdownTimeout = 5 * time.Second

	// WatchDebounce is the quiet period before a local index change is signalled
	WatchDebounce = 250 * time.Millisecond
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// BodyPreviewLength is the maximum number of characters of a response body
	// carried in diagnostics and classified errors
	BodyPreviewLength = 500

	// MaxResponseBytes bounds how much of a response body is read into memory
	MaxResponseBytes = 16 << 20

	// ObserverQueueSize is the buffer size of the observer loop's work queue
	ObserverQueueSize = 64

	// MaxRedirects is the maximum number of redirects followed per request
	MaxRedirects = 10
)

// Access control constants
const (
	// DefaultLoginDomain identifies the Cloudflare Access login gateway
	DefaultLoginDomain = "cloudflareaccess.com"
)

// SessionCookies are the cookie names recognized as access-control session cookies.
var SessionCookies = []string{
	"CF_Authorization",
	"CF_AppSession",
	"CF_Binding",
}

// Application constants
const (
	// AppName is the application name used for config lookup and env prefixes
	AppName = "enginelink"

	// EnvPrefix is the prefix for environment variable configuration
	EnvPrefix = "ENGINELINK"

	// UserAgent is sent with every backend request
	UserAgent = "enginelink"
)
