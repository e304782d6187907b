// Package pagecache persists what we knew about each Notion page (and each downloaded image) at
// the end of the last successful sync.
package pagecache

// Entry is the last-synced metadata of one page. Timestamps are kept exactly as Notion sent them;
// comparing them is the caller's business.
type Entry struct {
	CreatedTime    string
	LastEditedTime string
}
