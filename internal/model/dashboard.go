package model

// Dashboard is the intermediate type produced by connectors: a dashboard as
// the source BI tool describes it, with its charts inlined.
type Dashboard struct {
	ID          string
	Name        string
	Description string
	SourceURL   string
	Project     string // folder, project or collection the dashboard lives in
	Tags        []string
	Owner       *Owner
	Charts      []Chart
	ViewCount   int64 // cumulative views, when the listing carries it
}

// Chart is a single visualization (sheet, card, tile) on a dashboard.
type Chart struct {
	ID          string
	Name        string
	Description string
	ChartType   string
	SourceURL   string
	Tags        []string
}

// Owner identifies who owns a dashboard in the source tool.
type Owner struct {
	ID    string
	Name  string
	Email string
}
