package integrations

import "github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"

// SampleAnalytics is a fixed week of Google Analytics data served in demo mode
func SampleAnalytics() models.AnalyticsReport {
	return models.AnalyticsReport{
		Dimensions: []string{"date"},
		Metrics:    []string{"activeUsers", "screenPageViews", "sessions", "engagementRate"},
		Rows: []map[string]string{
			{"date": "20230101", "activeUsers": "120", "screenPageViews": "450", "sessions": "150", "engagementRate": "0.65"},
			{"date": "20230102", "activeUsers": "135", "screenPageViews": "520", "sessions": "180", "engagementRate": "0.68"},
			{"date": "20230103", "activeUsers": "142", "screenPageViews": "510", "sessions": "175", "engagementRate": "0.72"},
			{"date": "20230104", "activeUsers": "128", "screenPageViews": "480", "sessions": "160", "engagementRate": "0.70"},
			{"date": "20230105", "activeUsers": "145", "screenPageViews": "530", "sessions": "190", "engagementRate": "0.75"},
			{"date": "20230106", "activeUsers": "160", "screenPageViews": "580", "sessions": "210", "engagementRate": "0.78"},
			{"date": "20230107", "activeUsers": "155", "screenPageViews": "560", "sessions": "200", "engagementRate": "0.76"},
		},
	}
}

// SampleInsights is a fixed set of Meta campaign insights served in demo mode
func SampleInsights() []map[string]any {
	return []map[string]any{
		{"campaign_name": "Summer Sale", "impressions": "12500", "clicks": "450", "spend": "350.25", "ctr": "0.036", "cpc": "0.78", "reach": "8900", "frequency": "1.4"},
		{"campaign_name": "Product Launch", "impressions": "18200", "clicks": "620", "spend": "520.75", "ctr": "0.034", "cpc": "0.84", "reach": "12400", "frequency": "1.5"},
		{"campaign_name": "Brand Awareness", "impressions": "25600", "clicks": "380", "spend": "420.50", "ctr": "0.015", "cpc": "1.11", "reach": "18900", "frequency": "1.35"},
		{"campaign_name": "Retargeting", "impressions": "8900", "clicks": "520", "spend": "280.30", "ctr": "0.058", "cpc": "0.54", "reach": "4200", "frequency": "2.1"},
	}
}
