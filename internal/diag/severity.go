package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo marks informational diagnostics, including fix notices.
	SevInfo Severity = iota
	// SevWarning marks constructs that parse but deserve attention.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
