package localdump

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ImageCache maps an image's object key to the place we saved it.
type ImageCache interface {
	LookupImage(ctx context.Context, key string) (string, bool, error)
	SaveImage(ctx context.Context, key string, localPath string) error
}

var (
	s3ImageRef     = regexp.MustCompile(`!\[.*?\]\((https://(?:s3|prod-files-secure\.s3)\.[^)]+?)\)`)
	imageExtension = regexp.MustCompile(`(?i)\.(?:jpe?g|gif|png|webp|avif)$`)
)

const legacyStaticPrefix = "secure.notion-static.com/"

// IsS3URL reports whether s looks like a Notion-hosted S3 object.
func IsS3URL(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "amazonaws.com") && strings.Contains(s, "s3.")
}

// ImageKey extracts the stable part of a signed Notion image URL: the object path without the
// expiring query string. Returns "" if the URL is not one of the two S3 layouts Notion uses.
func ImageKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !IsS3URL(u.Host) {
		return ""
	}

	p := strings.TrimPrefix(u.Path, "/")
	if !imageExtension.MatchString(p) {
		return ""
	}

	switch {
	case strings.HasPrefix(u.Host, "s3.") && strings.Contains(p, "notion-static"):
		// https://s3.us-west-2.amazonaws.com/secure.notion-static.com/<uid>/<file>
		return p
	case strings.HasPrefix(u.Host, "prod-files-secure.s3."):
		// https://prod-files-secure.s3.us-west-2.amazonaws.com/<workspace>/<uid>/<file>
		return p
	}
	return ""
}

// imageFileName flattens a key into a single file name.
func imageFileName(key string) string {
	return strings.ReplaceAll(strings.TrimPrefix(key, legacyStaticPrefix), "/", "-")
}

// ImageRewriter swaps signed S3 image URLs in rendered Markdown for the site-local copies.
type ImageRewriter struct {
	Cache ImageCache

	// Hugo's static directory; it is not part of the public URL.
	StaticDir string
}

// Rewrite replaces, on each line, the first S3 image reference whose key we have a local copy
// for. Lines we know nothing about pass through untouched.
func (r *ImageRewriter) Rewrite(ctx context.Context, body string) (string, error) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		out, err := r.rewriteLine(ctx, line)
		if err != nil {
			return "", err
		}
		lines[i] = out
	}
	return strings.Join(lines, "\n"), nil
}

func (r *ImageRewriter) rewriteLine(ctx context.Context, line string) (string, error) {
	if !IsS3URL(line) {
		return line, nil
	}

	m := s3ImageRef.FindStringSubmatch(line)
	if m == nil {
		return line, nil
	}

	key := ImageKey(m[1])
	if key == "" {
		return line, nil
	}

	local, ok, err := r.Cache.LookupImage(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: image cache lookup: %w", ErrExternalCall, err)
	}
	if !ok {
		return line, nil
	}

	return strings.Replace(line, m[1], publicPath(r.StaticDir, local), 1), nil
}

// publicPath turns "static/pimages/x/y.png" into "/pimages/x/y.png".
func publicPath(staticDir, local string) string {
	local = path.Clean(strings.ReplaceAll(local, "\\", "/"))
	if staticDir != "" {
		staticDir = path.Clean(strings.ReplaceAll(staticDir, "\\", "/"))
		if strings.HasPrefix(local, staticDir+"/") {
			local = strings.TrimPrefix(local, staticDir)
		}
	}
	if !strings.HasPrefix(local, "/") {
		local = "/" + local
	}
	return local
}
