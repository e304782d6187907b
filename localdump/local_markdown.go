package localdump

import "github.com/toothbrush/notion-dump/notion"

// PageRecord is one row of the database listing, reduced to what the path resolver and the change
// detector need. Page keeps the raw listing item for the front matter builder.
type PageRecord struct {
	ID         string
	ParentID   string
	ParentType string // notion.DatabaseParent, notion.PageParent, ...
	Name       string
	Published  bool

	LastEditedTime string
	CreatedTime    string

	// Operator override: if set, the page is written here verbatim.
	Filepath string

	Page *notion.Page
}

// PathEntry is the resolver's verdict for one record.
type PathEntry struct {
	ID string

	// Relative output path; empty means the page is excluded from the dump.
	Path string

	// The page has child pages, so it's rendered as a directory index.
	IsContainer bool

	// The page or one of its descendants is published.
	Reachable bool

	Record PageRecord
}

func (e PathEntry) Included() bool {
	return e.Path != ""
}

// LocalMarkdown is a rendered page, ready to be written.
type LocalMarkdown struct {
	// contents of the file
	Content string

	// original Notion ID of the page
	ID string

	// path relative to the content directory
	RelativePath string
}
