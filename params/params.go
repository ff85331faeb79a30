package params

import (
	"fmt"
	"time"
)

const (
	Version = "0.1.0"

	ServerBodyLimit    = 1048576 // 1 MiB
	ServerIdleTimeout  = 30 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second

	SuspiciousIPKeyPrefix = "sip:" // cache key prefix for flagged source IPs
	ScanLockKey           = "threat_scan_lock"

	SuspiciousIPCacheTTL = 10 * time.Minute
	ScanLockTTL          = 2 * time.Minute
	ThreatScanInterval   = 5 * time.Minute

	// Detection rule windows and thresholds. Evaluated over the audit log.
	BruteForceWindow        = 1 * time.Hour
	BruteForceThreshold     = 20 // failed logins per IP
	StuffingWindow          = 24 * time.Hour
	StuffingThreshold       = 10 // distinct usernames per IP
	AnomalousWindow         = 1 * time.Hour
	AnomalousThreshold      = 200 // actions per user
	SuspiciousIPWindow      = 1 * time.Hour
	SuspiciousIPThreshold   = 10 // failed logins per IP, ad hoc login-path check
	RecoveryCodeCount       = 10
	TOTPSecretSize          = 32 // bytes, 256-bit secret
	RefreshTokenSize        = 32 // bytes, 256-bit opaque value
	TemporaryPasswordLength = 16

	PBKDF2Iterations = 310000
	PBKDF2SaltSize   = 16
	PBKDF2KeySize    = 32

	HealthCheckServerAddr = ":3001"
)

func VersionWithCommit(gitCommit, gitDate string) string {
	version := Version
	if len(gitCommit) >= 8 {
		version += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		version += "-" + gitDate
	}
	return fmt.Sprintf("authcore/v%s", version)
}
