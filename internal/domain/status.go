package domain

// OverallStatus is the derived severity of a whole page. It is never persisted.
type OverallStatus string

// Overall statuses.
const (
	OverallStatusOperational   OverallStatus = "operational"
	OverallStatusPartialOutage OverallStatus = "partial_outage"
	OverallStatusMajorOutage   OverallStatus = "major_outage"
)

// Label returns the human readable text shown on status pages.
func (s OverallStatus) Label() string {
	switch s {
	case OverallStatusMajorOutage:
		return "Major Outage"
	case OverallStatusPartialOutage:
		return "Partial Outage"
	default:
		return "All Systems Operational"
	}
}

// DeriveOverallStatus computes the page status from its components.
// Precedence: down > degraded > operational. A page without components is operational.
func DeriveOverallStatus(components []Component) OverallStatus {
	overall := OverallStatusOperational
	for _, c := range components {
		switch c.Status {
		case ComponentStatusDown:
			return OverallStatusMajorOutage
		case ComponentStatusDegraded:
			overall = OverallStatusPartialOutage
		}
	}
	return overall
}
