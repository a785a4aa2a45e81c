package integrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
)

func TestFormatChartData(t *testing.T) {
	chart, ok := FormatChartData(SampleAnalytics(), "line")
	require.True(t, ok)

	assert.Len(t, chart.Labels, 7)
	assert.Equal(t, "20230101", chart.Labels[0])
	require.Len(t, chart.Datasets, 4)

	users := chart.Datasets[0]
	assert.Equal(t, "activeUsers", users.Label)
	assert.Equal(t, []float64{120, 135, 142, 128, 145, 160, 155}, users.Data)
	assert.Equal(t, "rgba(75, 192, 192, 1)", users.BorderColor)
	assert.Equal(t, "rgba(75, 192, 192, 0.2)", users.BackgroundColor)
	assert.Equal(t, 2, users.BorderWidth)
	assert.Equal(t, 0.4, users.Tension)

	assert.Equal(t, 0.65, chart.Datasets[3].Data[0])
}

func TestFormatChartData_BarHasNoTension(t *testing.T) {
	chart, ok := FormatChartData(SampleAnalytics(), "bar")
	require.True(t, ok)
	for _, ds := range chart.Datasets {
		assert.Zero(t, ds.Tension)
	}
}

func TestFormatChartData_Empty(t *testing.T) {
	tests := []struct {
		name   string
		report models.AnalyticsReport
	}{
		{name: "no rows", report: models.AnalyticsReport{Dimensions: []string{"date"}, Metrics: []string{"sessions"}}},
		{name: "no metrics", report: models.AnalyticsReport{Dimensions: []string{"date"}, Rows: []map[string]string{{"date": "1"}}}},
		{name: "no dimensions", report: models.AnalyticsReport{Metrics: []string{"sessions"}, Rows: []map[string]string{{"sessions": "1"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := FormatChartData(tt.report, "line")
			assert.False(t, ok)
		})
	}
}

func TestFormatChartData_NonNumericIsZero(t *testing.T) {
	report := models.AnalyticsReport{
		Dimensions: []string{"date"},
		Metrics:    []string{"sessions"},
		Rows:       []map[string]string{{"date": "d1", "sessions": "n/a"}},
	}
	chart, ok := FormatChartData(report, "line")
	require.True(t, ok)
	assert.Equal(t, []float64{0}, chart.Datasets[0].Data)
}

func TestColor_Wraps(t *testing.T) {
	assert.Equal(t, Color(0, 1), Color(len(palette), 1))
	assert.Equal(t, "rgba(201, 203, 207, 0.5)", Color(6, 0.5))
}
