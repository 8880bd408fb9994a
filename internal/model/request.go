package model

// CreateDashboardRequest asks the catalog to create or update a dashboard.
type CreateDashboardRequest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty"`
	Project     string   `json:"project,omitempty"`
	Charts      []string `json:"charts"` // chart FQNs
	Tags        []string `json:"tags,omitempty"`
	Owners      []string `json:"owners,omitempty"` // owner emails or names
	Service     string   `json:"service"`
}

// CreateChartRequest asks the catalog to create or update a chart.
type CreateChartRequest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	ChartType   string   `json:"chartType"`
	SourceURL   string   `json:"sourceUrl,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Service     string   `json:"service"`
}

// DashboardRef is a dashboard's identity inside the catalog.
type DashboardRef struct {
	ID  string `json:"id"`
	FQN string `json:"fullyQualifiedName"`
}
