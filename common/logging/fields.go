package logging

import "log/slog"

// Field names shared by every component so log queries stay stable.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldSource    = "source"
	FieldEventID   = "event_id"
	FieldDedupKey  = "dedup_key"
	FieldAgentID   = "agent_id"
	FieldMetric    = "metric"
	FieldTable     = "table"
	FieldCount     = "count"
	FieldReason    = "reason"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldIP        = "ip"
	FieldError     = "error"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

func Source(source string) slog.Attr {
	return slog.String(FieldSource, source)
}

func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

func DedupKey(key string) slog.Attr {
	return slog.String(FieldDedupKey, key)
}

func AgentID(id string) slog.Attr {
	return slog.String(FieldAgentID, id)
}

func Metric(metric string) slog.Attr {
	return slog.String(FieldMetric, metric)
}

func Table(name string) slog.Attr {
	return slog.String(FieldTable, name)
}

func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Reason describes why an event or envelope was dropped.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Error returns a slog attribute for err. A nil error renders as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
