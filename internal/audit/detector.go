package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cast"
	"github.com/vhkhang/authcore/internal/store"
	"github.com/vhkhang/authcore/model"
	"github.com/vhkhang/authcore/params"
)

const (
	ThreatTypeBruteForce         = "BRUTE_FORCE_ATTACK"
	ThreatTypeCredentialStuffing = "CREDENTIAL_STUFFING"
	ThreatTypeAnomalousActivity  = "ANOMALOUS_ACCOUNT_ACTIVITY"
)

var ErrThreatNotFound = errors.New("threat not found or already resolved")

// localAllowlist exempts development and health-check traffic from every
// suspicious-IP rule, so loopback sources can never self-trigger lockouts.
var localAllowlist = map[string]struct{}{
	"127.0.0.1": {},
	"::1":       {},
	"localhost": {},
}

func isExemptIP(ip string) bool {
	if _, ok := localAllowlist[ip]; ok {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}

// ThreatDetector evaluates the audit log against sliding-window heuristics
// and raises SecurityThreat records. Positive ad hoc IP checks are cached
// so repeated login attempts from a flagged source stay cheap.
type ThreatDetector struct {
	eventRepo  EventRepository
	threatRepo ThreatRepository
	ipCache    store.Storage
	scanLock   store.Storage
}

func encodeEvidence(fields map[string]interface{}) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(data)
}

// IsSuspiciousIP is the cheap inline check used during login, before
// password verification runs: at least SuspiciousIPThreshold failed logins
// from the IP within the last hour flags it for the current request.
func (d *ThreatDetector) IsSuspiciousIP(ctx context.Context, ip string) (bool, error) {
	if isExemptIP(ip) {
		return false, nil
	}
	if _, err := d.ipCache.Get(ctx, ip); err == nil {
		return true, nil
	}
	count, err := d.eventRepo.CountFailedLoginsByIP(ctx, ip, time.Now().Add(-params.SuspiciousIPWindow))
	if err != nil {
		return false, err
	}
	if count < params.SuspiciousIPThreshold {
		return false, nil
	}
	if err := d.ipCache.Set(ctx, ip, cast.ToString(count), params.SuspiciousIPCacheTTL); err != nil {
		slog.Warn("Failed to cache suspicious IP", "ip", ip, "error", err)
	}
	return true, nil
}

// ClearSuspicion drops the cached flag for an IP, used after a legitimate
// login succeeds from a previously flagged source.
func (d *ThreatDetector) ClearSuspicion(ctx context.Context, ip string) {
	if err := d.ipCache.Delete(ctx, ip); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("Failed to clear suspicious IP flag", "ip", ip, "error", err)
	}
}

// Scan runs every detection rule over its sliding window. A short-TTL
// cache lock keeps concurrently scheduled instances from double-scanning;
// losing the race skips the cycle.
func (d *ThreatDetector) Scan(ctx context.Context) error {
	acquired, err := d.scanLock.SetNX(ctx, params.ScanLockKey, "1", params.ScanLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		slog.Debug("Threat scan already running elsewhere, skipping")
		return nil
	}
	defer d.scanLock.Delete(ctx, params.ScanLockKey)

	if err := d.scanBruteForce(ctx); err != nil {
		return err
	}
	if err := d.scanCredentialStuffing(ctx); err != nil {
		return err
	}
	return d.scanAnomalousActivity(ctx)
}

func (d *ThreatDetector) scanBruteForce(ctx context.Context) error {
	since := time.Now().Add(-params.BruteForceWindow)
	rows, err := d.eventRepo.FailedLoginsByIP(ctx, since, params.BruteForceThreshold)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if isExemptIP(row.IP) {
			continue
		}
		if skip, err := d.threatRepo.HasUnresolved(ctx, ThreatTypeBruteForce, row.IP, 0, since); err != nil || skip {
			continue
		}
		threat := model.SecurityThreat{
			Type:        ThreatTypeBruteForce,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%d failed login attempts from %s within %s", row.Count, row.IP, params.BruteForceWindow),
			SourceIP:    row.IP,
			DetectedAt:  time.Now(),
			Evidence: encodeEvidence(map[string]interface{}{
				"FailedAttempts": row.Count,
				"Window":         params.BruteForceWindow.String(),
			}),
		}
		if err := d.threatRepo.Create(ctx, &threat); err != nil {
			return err
		}
		slog.Warn("Brute force threat raised", "ip", row.IP, "failedAttempts", row.Count)
	}
	return nil
}

func (d *ThreatDetector) scanCredentialStuffing(ctx context.Context) error {
	since := time.Now().Add(-params.StuffingWindow)
	rows, err := d.eventRepo.DistinctUsernamesByIP(ctx, since, params.StuffingThreshold)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if isExemptIP(row.IP) {
			continue
		}
		if skip, err := d.threatRepo.HasUnresolved(ctx, ThreatTypeCredentialStuffing, row.IP, 0, since); err != nil || skip {
			continue
		}
		threat := model.SecurityThreat{
			Type:        ThreatTypeCredentialStuffing,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("%d distinct usernames attempted from %s within %s", row.Count, row.IP, params.StuffingWindow),
			SourceIP:    row.IP,
			DetectedAt:  time.Now(),
			Evidence: encodeEvidence(map[string]interface{}{
				"DistinctUsernames": row.Count,
				"Window":            params.StuffingWindow.String(),
			}),
		}
		if err := d.threatRepo.Create(ctx, &threat); err != nil {
			return err
		}
		slog.Warn("Credential stuffing threat raised", "ip", row.IP, "distinctUsernames", row.Count)
	}
	return nil
}

func (d *ThreatDetector) scanAnomalousActivity(ctx context.Context) error {
	since := time.Now().Add(-params.AnomalousWindow)
	rows, err := d.eventRepo.ActionsByUser(ctx, since, params.AnomalousThreshold)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if skip, err := d.threatRepo.HasUnresolved(ctx, ThreatTypeAnomalousActivity, "", row.UserID, since); err != nil || skip {
			continue
		}
		threat := model.SecurityThreat{
			Type:        ThreatTypeAnomalousActivity,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("%d actions by user %s within %s", row.Count, row.Username, params.AnomalousWindow),
			UserID:      row.UserID,
			Username:    row.Username,
			DetectedAt:  time.Now(),
			Evidence: encodeEvidence(map[string]interface{}{
				"ActionCount": row.Count,
				"Window":      params.AnomalousWindow.String(),
			}),
		}
		if err := d.threatRepo.Create(ctx, &threat); err != nil {
			return err
		}
		slog.Warn("Anomalous account activity threat raised", "userId", row.UserID, "actions", row.Count)
	}
	return nil
}

func (d *ThreatDetector) ActiveThreats(ctx context.Context) ([]*model.SecurityThreat, error) {
	return d.threatRepo.Active(ctx)
}

// ResolveThreat closes a threat with a resolution note. Resolving an
// unknown or already resolved threat fails; resolution never re-opens.
func (d *ThreatDetector) ResolveThreat(ctx context.Context, threatID uint, resolution string) error {
	affected, err := d.threatRepo.Resolve(ctx, threatID, resolution)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrThreatNotFound
	}
	return nil
}

// ReportThreat records a manually reported threat.
func (d *ThreatDetector) ReportThreat(ctx context.Context, threat *model.SecurityThreat) error {
	if threat.DetectedAt.IsZero() {
		threat.DetectedAt = time.Now()
	}
	return d.threatRepo.Create(ctx, threat)
}

func NewThreatDetector(eventRepo EventRepository, threatRepo ThreatRepository, storage store.Storage) *ThreatDetector {
	return &ThreatDetector{
		eventRepo:  eventRepo,
		threatRepo: threatRepo,
		ipCache:    store.StorageWithPrefix(storage, params.SuspiciousIPKeyPrefix),
		scanLock:   storage,
	}
}
