package messaging

// Dead-letter stream layout. Subjects follow {app}.{domain}.{reason}.
const (
	StreamDLQ      = "FACTFLOW_DLQ"
	SubjectDLQBase = "factflow.dlq"
	SubjectDLQAll  = SubjectDLQBase + ".>"
)

// Header keys attached to dead-lettered messages.
const (
	HeaderSource    = "Factflow-Source"
	HeaderReason    = "Factflow-Reason"
	HeaderRequestID = "X-Request-ID"
)

// DLQSubject returns the subject for a dead-letter reason, e.g. factflow.dlq.ledger.
func DLQSubject(reason string) string {
	if reason == "" {
		reason = "unknown"
	}
	return SubjectDLQBase + "." + reason
}
