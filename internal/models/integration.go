package models

// IntegrationStatus is the per-service entry of the status endpoint
type IntegrationStatus struct {
	Connected bool    `json:"connected"`
	LastSync  *string `json:"last_sync"`
	Error     *string `json:"error"`
}

// AnalyticsReport is a Google Analytics report reshaped into one map per row,
// keyed by dimension and metric names.
type AnalyticsReport struct {
	Dimensions []string            `json:"dimensions"`
	Metrics    []string            `json:"metrics"`
	Rows       []map[string]string `json:"rows"`
}

// AnalyticsProperty is a Google Analytics 4 property visible to the user
type AnalyticsProperty struct {
	PropertyID  string `json:"property_id"`
	DisplayName string `json:"display_name"`
	Account     string `json:"account,omitempty"`
	CreateTime  string `json:"create_time,omitempty"`
	UpdateTime  string `json:"update_time,omitempty"`
}

// AdAccount is a Meta ad account visible to the user
type AdAccount struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	Name          string `json:"name"`
	AccountStatus int    `json:"account_status"`
}

// ChartData is the Chart.js-compatible shape produced from a report
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
	Tension         float64   `json:"tension"`
}
