package localdump

import "errors"

var (
	// The parent pointers contain a cycle, so no path in the tree can be trusted. Aborts the run.
	ErrMalformedHierarchy = errors.New("localdump: malformed page hierarchy")

	// The page is missing a property the front matter needs. Fails that page only.
	ErrMissingRequiredMetadata = errors.New("localdump: missing required metadata")

	// A signed S3 URL survived rewriting while strict-image-urls is on. Fails that page only.
	ErrUnresolvedRemoteAsset = errors.New("localdump: unresolved remote asset")

	// Any Notion, HTTP, disk or cache call failed. Fails that page only.
	ErrExternalCall = errors.New("localdump: external call failed")

	// The post-download command failed. Reported, never fails the page.
	ErrCallback = errors.New("localdump: post-download callback failed")
)
