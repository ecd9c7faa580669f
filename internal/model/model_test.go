package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"ExtensionInfo", &ExtensionInfo{}, "extension_infos"},
		{"TourSession", &TourSession{}, "tour_sessions"},
		{"TourEvent", &TourEvent{}, "tour_events"},
		{"TelemetrySample", &TelemetrySample{}, "telemetry_samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsAreTables(t *testing.T) {
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T has no TableName", m)
	}
}
