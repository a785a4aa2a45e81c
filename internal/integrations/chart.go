package integrations

import (
	"fmt"
	"strconv"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
)

var palette = [][3]int{
	{75, 192, 192},
	{54, 162, 235},
	{255, 99, 132},
	{255, 159, 64},
	{153, 102, 255},
	{255, 205, 86},
	{201, 203, 207},
}

// Color returns the palette colour for index as an rgba() string
func Color(index int, alpha float64) string {
	c := palette[index%len(palette)]
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c[0], c[1], c[2], strconv.FormatFloat(alpha, 'f', -1, 64))
}

// FormatChartData converts a report to Chart.js data: the first dimension
// gives the labels and every metric becomes a dataset. It returns false when
// the report has no dimensions, metrics or rows.
func FormatChartData(report models.AnalyticsReport, chartType string) (models.ChartData, bool) {
	if len(report.Dimensions) == 0 || len(report.Metrics) == 0 || len(report.Rows) == 0 {
		return models.ChartData{}, false
	}

	tension := 0.0
	if chartType == "" || chartType == "line" {
		tension = 0.4
	}

	chart := models.ChartData{
		Labels:   []string{},
		Datasets: make([]models.ChartDataset, len(report.Metrics)),
	}
	for i, metric := range report.Metrics {
		chart.Datasets[i] = models.ChartDataset{
			Label:           metric,
			Data:            []float64{},
			BorderColor:     Color(i, 1),
			BackgroundColor: Color(i, 0.2),
			BorderWidth:     2,
			Tension:         tension,
		}
	}

	labelKey := report.Dimensions[0]
	for _, row := range report.Rows {
		if label, ok := row[labelKey]; ok {
			chart.Labels = append(chart.Labels, label)
		}
		for i, metric := range report.Metrics {
			raw, ok := row[metric]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				v = 0
			}
			chart.Datasets[i].Data = append(chart.Datasets[i].Data, v)
		}
	}

	return chart, true
}
