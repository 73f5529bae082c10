package contracts

import "fmt"

// Version of the micromes binary and its HTTP API
const Version = "0.3.0"

// GitCommit is stamped at build time with
// -ldflags "-X micromes/pkg/contracts.GitCommit=$(git rev-parse --short HEAD)"
var GitCommit = "unknown"

// GetVersionString returns the banner printed by `micromes --version`
func GetVersionString() string {
	return fmt.Sprintf("Micro MES v%s (%s)", Version, GitCommit)
}
