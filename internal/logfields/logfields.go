package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyModule     = "module"
	KeyUnit       = "unit"
	KeyKind       = "kind"
	KeyAttempt    = "attempt"
	KeyJobs       = "jobs"
	KeyStale      = "stale"
	KeyDigest     = "digest"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Module(m string) slog.Attr        { return slog.String(KeyModule, m) }
func Unit(u string) slog.Attr          { return slog.String(KeyUnit, u) }
func Kind(k string) slog.Attr          { return slog.String(KeyKind, k) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func Jobs(n int) slog.Attr             { return slog.Int(KeyJobs, n) }
func Stale(n int) slog.Attr            { return slog.Int(KeyStale, n) }
func Digest(d string) slog.Attr        { return slog.String(KeyDigest, d) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
