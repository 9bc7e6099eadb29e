package models

// SearchResult is a single generation hit.
type SearchResult struct {
	Generation *GenerationSummary `json:"generation"`
	Score      float64            `json:"score"`
	Rank       int                `json:"rank"`
}

// SearchResponse is the response for a generation search.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}
