package localdump

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/toothbrush/notion-dump/notion"
)

// ImageDownloader fetches one image and returns where it was saved.
type ImageDownloader interface {
	Download(ctx context.Context, pageID string, rawURL string) (string, error)
}

// CollectImageURLs returns the URL of every Notion-hosted image in the tree, depth first, without
// duplicates. External images are left for the page to hotlink.
func CollectImageURLs(blocks []notion.Block) []string {
	urls := []string{}
	seen := map[string]bool{}

	pending := make([]*notion.Block, 0, len(blocks))
	for i := len(blocks) - 1; i >= 0; i-- {
		pending = append(pending, &blocks[i])
	}

	for len(pending) > 0 {
		b := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if b.Type == "image" && b.Image != nil {
			u := b.Image.URL()
			if IsS3URL(u) && !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}

		for i := len(b.Children) - 1; i >= 0; i-- {
			pending = append(pending, &b.Children[i])
		}
	}

	return urls
}

// HTTPImageDownloader saves images to <StaticDir>/pimages/<page id>/.
type HTTPImageDownloader struct {
	Client    *http.Client
	StaticDir string
}

// ImagePath is where the image with the given key is saved for a page.
func ImagePath(staticDir, pageID, key string) string {
	return filepath.Join(staticDir, "pimages", pageID, imageFileName(key))
}

func (d *HTTPImageDownloader) Download(ctx context.Context, pageID string, rawURL string) (string, error) {
	key := ImageKey(rawURL)
	if key == "" {
		return "", fmt.Errorf("localdump: not a Notion image URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("localdump: building image request: %w", err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("localdump: fetching image %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("localdump: fetching image %s: HTTP %d", key, resp.StatusCode)
	}

	dest := ImagePath(d.StaticDir, pageID, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return "", fmt.Errorf("localdump: couldn't create directory for %s: %w", dest, err)
	}

	// Write next to the destination and rename, so a failed download never leaves half an image
	// where the site expects a whole one.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return "", fmt.Errorf("localdump: couldn't create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("localdump: saving image %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("localdump: saving image %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("localdump: moving image into place: %w", err)
	}

	return dest, nil
}
