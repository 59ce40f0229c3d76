package instance

import (
	"os"

	"github.com/shopsense/storefront-backend/pkg/env"
)

// GetID returns the identifier of this process for log correlation. An
// explicit SHOPSENSE_INSTANCE_ID wins, then the platform dyno name, then the
// hostname.
func GetID() string {
	if id := env.First("", "SHOPSENSE_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
