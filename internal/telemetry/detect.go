package telemetry

import (
	"os"

	"github.com/cdnboot/cdnboot/internal/location"
)

// CIQueryParam is the query parameter that force-enables CI logging on a
// single page load.
const CIQueryParam = "ci_logging"

// CIEnvVar is the environment flag that force-enables CI logging for the
// whole process.
const CIEnvVar = "CI_LOGGING"

// DetectCILogging decides whether CI logging should be enabled. Precedence:
// explicit environment flag, then a truthy query parameter, then a loopback
// host, then the manifest's ci flag. Everything unset means disabled.
func DetectCILogging(manifestCI *bool, loc *location.Location) bool {
	if v, ok := os.LookupEnv(CIEnvVar); ok {
		return location.Truthy(v)
	}
	if loc != nil {
		if loc.QueryFlag(CIQueryParam) {
			return true
		}
		if loc.IsLoopback() {
			return true
		}
	}
	if manifestCI != nil {
		return *manifestCI
	}
	return false
}
