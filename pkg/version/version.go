package version

import (
	"strings"
	"time"
)

// Set at build time with
// -ldflags "-X github.com/nais/kfp-deploy/pkg/version.version=... -X github.com/nais/kfp-deploy/pkg/version.buildTime=..."
var (
	version   = "unknown"
	buildTime = "0"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

func Version() string {
	return version
}

// BuildTime returns the time the binary was built, or an error if the build
// did not record one.
func BuildTime() (time.Time, error) {
	return time.Parse(timeFormat, strings.TrimSpace(buildTime))
}
