package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyFile       = "file"
	KeySlug       = "slug"
	KeySection    = "section"
	KeyTaxonomy   = "taxonomy"
	KeyTerm       = "term"
	KeyRule       = "rule"
	KeyScanID     = "scan_id"
	KeyURL        = "url"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"

	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func File(f string) slog.Attr          { return slog.String(KeyFile, f) }
func Slug(s string) slog.Attr          { return slog.String(KeySlug, s) }
func Section(s string) slog.Attr       { return slog.String(KeySection, s) }
func Taxonomy(t string) slog.Attr      { return slog.String(KeyTaxonomy, t) }
func Term(t string) slog.Attr          { return slog.String(KeyTerm, t) }
func Rule(r string) slog.Attr          { return slog.String(KeyRule, r) }
func ScanID(id string) slog.Attr       { return slog.String(KeyScanID, id) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

func Method(m string) slog.Attr     { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr     { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr { return slog.String(KeyUserAgent, ua) }
