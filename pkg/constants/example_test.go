package constants_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentstation/enginelink/pkg/constants"
)

// Example_timeouts demonstrates timeout constants
func Example_timeouts() {
	// HTTP client with default timeout
	client := &http.Client{
		Timeout: constants.DefaultHTTPTimeout,
	}
	fmt.Printf("HTTP timeout: %v\n", client.Timeout)

	// Bounded shutdown
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	_, ok := ctx.Deadline()
	fmt.Printf("Shutdown deadline set: %v\n", ok)

	// Output:
	// HTTP timeout: 30s
	// Shutdown deadline set: true
}

// Example_permissions shows file permission constants
func Example_permissions() {
	fmt.Printf("Dir permissions: %o\n", constants.DirPermissions)
	fmt.Printf("File permissions: %o\n", constants.FilePermissions)

	// Output:
	// Dir permissions: 755
	// File permissions: 644
}

// Example_accessControl shows the access-control defaults
func Example_accessControl() {
	fmt.Printf("Login domain: %s\n", constants.DefaultLoginDomain)
	fmt.Printf("Preview length: %d\n", constants.BodyPreviewLength)

	// Output:
	// Login domain: cloudflareaccess.com
	// Preview length: 500
}

// Example_environment shows how configuration keys map to environment variables
func Example_environment() {
	fmt.Printf("%s_BASE_URI\n", constants.EnvPrefix)
	fmt.Printf("config file: ~/.%s.yaml\n", constants.AppName)

	// Output:
	// ENGINELINK_BASE_URI
	// config file: ~/.enginelink.yaml
}
