package rules

// #region severity

// Severity orders findings from informational to blocking.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the numeric order of a severity. Unknown values rank below INFO
// so malformed input never outranks a real finding.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarn:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the four known levels.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// #endregion severity
