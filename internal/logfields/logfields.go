// Package logfields centralizes canonical log field names so they do not
// drift across packages.
package logfields

import "log/slog"

const (
	KeyComponent  = "component"
	KeyDate       = "date"
	KeySeconds    = "seconds"
	KeyViolations = "violations"
	KeyDistanceCm = "distance_cm"
	KeyEpoch      = "epoch"
	KeyJobID      = "job_id"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }
func Date(d string) slog.Attr         { return slog.String(KeyDate, d) }
func Seconds(n uint64) slog.Attr      { return slog.Uint64(KeySeconds, n) }
func Violations(n uint32) slog.Attr   { return slog.Uint64(KeyViolations, uint64(n)) }
func DistanceCm(v float64) slog.Attr  { return slog.Float64(KeyDistanceCm, v) }
func Epoch(e uint64) slog.Attr        { return slog.Uint64(KeyEpoch, e) }
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
