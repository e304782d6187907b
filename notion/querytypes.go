package notion

// BlockChildrenQuery defines the query parameters for:
// https://developers.notion.com/reference/get-block-children
type BlockChildrenQuery struct {
	ID string `url:"-"` // ID of the block or page; required

	// 'StartCursor' is used for pagination; the opaque cursor is returned as 'next_cursor' in the
	// previous response.
	StartCursor string `url:"start_cursor,omitempty"`
	PageSize    int    `url:"page_size,omitempty"` // default 100, max 100
}

// DatabaseQuery is the JSON body for:
// https://developers.notion.com/reference/post-database-query
//
// Unlike the other queries this one is POSTed, so it carries json tags rather than url tags.
type DatabaseQuery struct {
	DatabaseID string `json:"-"` // required

	Sorts []QuerySort `json:"sorts,omitempty"`

	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"` // default 100, max 100
}

type QuerySort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // created_time or last_edited_time
	Direction string `json:"direction"`           // ascending or descending
}
