package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveOverallStatus(t *testing.T) {
	op := Component{Status: ComponentStatusOperational}
	deg := Component{Status: ComponentStatusDegraded}
	down := Component{Status: ComponentStatusDown}

	tests := []struct {
		name       string
		components []Component
		want       OverallStatus
	}{
		{"no components", nil, OverallStatusOperational},
		{"all operational", []Component{op, op}, OverallStatusOperational},
		{"one degraded", []Component{op, deg}, OverallStatusPartialOutage},
		{"one down", []Component{op, down}, OverallStatusMajorOutage},
		{"down wins over degraded", []Component{deg, down, op}, OverallStatusMajorOutage},
		{"degraded after down still major", []Component{down, deg}, OverallStatusMajorOutage},
		{"all degraded", []Component{deg, deg}, OverallStatusPartialOutage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOverallStatus(tt.components))
		})
	}
}

func TestOverallStatus_Label(t *testing.T) {
	assert.Equal(t, "All Systems Operational", OverallStatusOperational.Label())
	assert.Equal(t, "Partial Outage", OverallStatusPartialOutage.Label())
	assert.Equal(t, "Major Outage", OverallStatusMajorOutage.Label())
}
