package failure

type Severity int

// caller control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

// ClassifiedError is the error contract shared by every component boundary.
// A recoverable failure degrades only the operation that raised it; a fatal
// one tells the caller that retrying the same operation is pointless.
// Nothing in this system treats either severity as process-terminating.
type ClassifiedError interface {
	error
	Severity() Severity
}
