package notion

// PageList is the paginated response of a database query.
type PageList struct {
	Results []Page `json:"results"`

	// Present (and HasMore true) if there is another batch to fetch.
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// BlockList is the paginated response of a block-children query.
type BlockList struct {
	Results []Block `json:"results"`

	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// ErrorResponse is what Notion sends with any non-2xx status.
type ErrorResponse struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
