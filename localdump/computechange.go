package localdump

import (
	"fmt"
	"time"

	"github.com/toothbrush/notion-dump/pagecache"
)

type Decision int

const (
	Skip Decision = iota
	Create
	Update
)

func (d Decision) String() string {
	switch d {
	case Create:
		return "create"
	case Update:
		return "update"
	default:
		return "skip"
	}
}

// RemoteStamp is what the listing told us about a page, before any body fetch.
type RemoteStamp struct {
	ID             string
	LastEditedTime string
}

// ShouldProcess decides what to do with a page given what we cached last time. Force bypasses
// the timestamp comparison entirely. loc anchors date-only timestamps; nil means UTC.
func ShouldProcess(force bool, remote RemoteStamp, cached *pagecache.Entry, loc *time.Location) (Decision, error) {
	if cached == nil {
		return Create, nil
	}
	if force {
		return Update, nil
	}

	edited, err := ParseTimestamp(remote.LastEditedTime, loc)
	if err != nil {
		return Skip, fmt.Errorf("localdump: last edit of %s: %w", remote.ID, err)
	}

	// An unreadable cache entry counts as stale.
	seen, err := ParseTimestamp(cached.LastEditedTime, loc)
	if err != nil {
		return Update, nil
	}

	if edited.After(seen) {
		return Update, nil
	}
	return Skip, nil
}

const dateOnly = "2006-01-02"

// ParseTimestamp accepts RFC 3339 timestamps with any offset, and bare dates, which are taken to
// be midnight in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	if len(s) == len(dateOnly) {
		t, err := time.ParseInLocation(dateOnly, s, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("localdump: bad date '%s': %w", s, err)
		}
		return t, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("localdump: bad timestamp '%s': %w", s, err)
	}
	return t, nil
}

// IsDateOnly reports whether s is a bare YYYY-MM-DD date.
func IsDateOnly(s string) bool {
	_, err := time.Parse(dateOnly, s)
	return err == nil
}

// ParseUTCOffset turns a "+09:00"-style offset into a fixed zone. An empty offset means UTC.
func ParseUTCOffset(offset string) (*time.Location, error) {
	if offset == "" || offset == "Z" {
		return time.UTC, nil
	}

	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("localdump: utc offset should look like +09:00, got '%s': %w", offset, err)
	}
	_, secs := t.Zone()
	return time.FixedZone(offset, secs), nil
}
