package localdump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/toothbrush/notion-dump/notion"
	"github.com/toothbrush/notion-dump/pagecache"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// ContentSource fetches the block tree of one page.
type ContentSource interface {
	FetchBlocks(ctx context.Context, pageID string) ([]notion.Block, error)
}

// NotionSource fetches block trees from the Notion API.
type NotionSource struct {
	API notion.ChildLister
}

func (s NotionSource) FetchBlocks(ctx context.Context, pageID string) ([]notion.Block, error) {
	return notion.GetBlockTree(ctx, s.API, pageID)
}

// PageCache remembers what each page looked like at the last sync.
type PageCache interface {
	GetPage(ctx context.Context, id string) (pagecache.Entry, bool, error)
	PutPage(ctx context.Context, id string, e pagecache.Entry) error
}

// ImageCallback is run for every image saved to disk, after its page is written.
type ImageCallback func(ctx context.Context, localPath string) error

type Syncer struct {
	Source     ContentSource
	Pages      PageCache
	Images     ImageCache
	Converter  Converter
	Writer     FileWriter
	Downloader ImageDownloader

	Paths       PathOptions
	FrontMatter FrontMatterOptions
	Format      FrontMatterFormat

	// Hugo's static directory, stripped from rewritten image URLs.
	StaticDir string

	// Process every included page regardless of the cache.
	Force bool

	// Don't download images; whatever was downloaded before is still linked.
	ServerMode bool

	// Fail a page if a signed S3 URL is left in its Markdown.
	StrictImageURLs bool

	// Don't download images or touch the cache. The Writer decides for itself whether it writes.
	DryRun bool

	// Maximum number of external calls in flight. Defaults to DefaultConcurrency.
	Concurrency int

	ImageCallback ImageCallback

	Logger *slog.Logger

	// Where to draw the progress bar; nil for none.
	Progress io.Writer
}

// Outcome is what happened to each page. Failed pages are in Failures only.
type Outcome struct {
	mu sync.Mutex

	Created []string
	Updated []string
	Skipped []string

	// Files actually written; empty on a dry run.
	Written []string

	// keyed by page id
	Failures map[string]error

	// keyed by image path
	CallbackFailures map[string]error
}

func (o *Outcome) record(d Decision, path string, written bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch d {
	case Create:
		o.Created = append(o.Created, path)
	case Update:
		o.Updated = append(o.Updated, path)
	default:
		o.Skipped = append(o.Skipped, path)
	}
	if written {
		o.Written = append(o.Written, path)
	}
}

func (o *Outcome) fail(id string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Failures[id] = err
}

func (o *Outcome) callbackFailed(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.CallbackFailures[path] = err
}

// Run syncs every page the path resolver includes. Only a malformed hierarchy fails the run as a
// whole; anything that goes wrong with one page is recorded in the outcome and the other pages
// carry on.
func (s *Syncer) Run(ctx context.Context, records []PageRecord) (*Outcome, error) {
	entries, err := ResolvePaths(records, s.Paths)
	if err != nil {
		return nil, err
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	included := make([]PathEntry, 0, len(entries))
	for _, e := range entries {
		if e.Included() {
			included = append(included, e)
		} else {
			logger.Debug("not published", "page", e.ID, "name", e.Record.Name)
		}
	}

	outcome := &Outcome{
		Failures:         map[string]error{},
		CallbackFailures: map[string]error{},
	}

	indexFile := s.Paths.IndexFile
	if indexFile == "" {
		indexFile = DefaultIndexFile
	}

	run := &syncRun{
		Syncer:    s,
		indexFile: indexFile,
		limiter:   NewLimiter(s.Concurrency),
		rewriter:  &ImageRewriter{Cache: s.Images, StaticDir: s.StaticDir},
		logger:    logger,
		outcome:   outcome,
	}

	var p *mpb.Progress
	var bar *mpb.Bar
	// A bar with nothing to count never completes, and Wait would block on it.
	if s.Progress != nil && len(included) > 0 {
		p = mpb.NewWithContext(ctx, mpb.WithOutput(s.Progress), mpb.WithWidth(64))
		bar = p.AddBar(int64(len(included)),
			mpb.PrependDecorators(
				decor.Name("pages:", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d/%d) "),
				decor.NewPercentage("%d"),
				decor.Spinner([]string{" /", " -", " \\", " |"}),
			),
		)
	}

	// A plain Group: one page failing must not cancel its siblings.
	var grp errgroup.Group
	for _, e := range included {
		grp.Go(func() error {
			if err := run.syncPage(ctx, e); err != nil {
				logger.Warn("page failed", "page", e.ID, "path", e.Path, "err", err)
				outcome.fail(e.ID, fmt.Errorf("page %s (%s): %w", e.ID, e.Path, err))
			}
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	_ = grp.Wait()

	if p != nil {
		p.Wait()
	}

	logger.Info("sync finished",
		"created", len(outcome.Created),
		"updated", len(outcome.Updated),
		"skipped", len(outcome.Skipped),
		"failed", len(outcome.Failures))

	return outcome, nil
}

type syncRun struct {
	*Syncer

	indexFile string
	limiter   *Limiter
	rewriter  *ImageRewriter
	logger    *slog.Logger
	outcome   *Outcome
}

func (r *syncRun) syncPage(ctx context.Context, e PathEntry) error {
	rec := e.Record

	var cached *pagecache.Entry
	entry, ok, err := r.Pages.GetPage(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("%w: page cache: %w", ErrExternalCall, err)
	}
	if ok {
		cached = &entry
	}

	decision, err := ShouldProcess(r.Force, RemoteStamp{ID: rec.ID, LastEditedTime: rec.LastEditedTime}, cached, r.FrontMatter.Location)
	if err != nil {
		return err
	}
	if decision == Skip {
		r.logger.Debug("unchanged", "page", rec.ID, "path", e.Path)
		r.outcome.record(Skip, e.Path, false)
		return nil
	}

	fm, err := BuildFrontMatter(rec, r.FrontMatter)
	if err != nil {
		return err
	}

	body := ""
	saved := []string{}
	// A directory index carries front matter only; its children are pages of their own. The
	// written path decides, so an operator-pinned filepath is honoured either way.
	if path.Base(e.Path) != r.indexFile {
		body, saved, err = r.renderBody(ctx, rec.ID)
		if err != nil {
			return err
		}
	}

	content, err := RenderPage(fm, body, r.Format)
	if err != nil {
		return err
	}

	err = r.limiter.Do(ctx, "write "+e.Path, func(ctx context.Context) error {
		return r.Writer.Write(ctx, LocalMarkdown{ID: rec.ID, RelativePath: e.Path, Content: content})
	})
	if err != nil {
		return err
	}

	r.runCallbacks(ctx, saved)

	if !r.DryRun {
		err := r.Pages.PutPage(ctx, rec.ID, pagecache.Entry{CreatedTime: rec.CreatedTime, LastEditedTime: rec.LastEditedTime})
		if err != nil {
			return fmt.Errorf("%w: page cache: %w", ErrExternalCall, err)
		}
	}

	r.logger.Info(decision.String(), "page", rec.ID, "path", e.Path)
	r.outcome.record(decision, e.Path, !r.DryRun)
	return nil
}

// renderBody fetches, downloads images for, converts and rewrites one page. It returns the
// images it saved so their callbacks can run once the page is written.
func (r *syncRun) renderBody(ctx context.Context, pageID string) (string, []string, error) {
	var blocks []notion.Block
	err := r.limiter.Do(ctx, "fetch blocks", func(ctx context.Context) error {
		var err error
		blocks, err = r.Source.FetchBlocks(ctx, pageID)
		return err
	})
	if err != nil {
		return "", nil, err
	}

	saved := []string{}
	if !r.ServerMode && !r.DryRun {
		for _, u := range CollectImageURLs(blocks) {
			local, err := r.downloadImage(ctx, pageID, u)
			if errors.Is(err, errImageSkipped) {
				// The URL stays remote; strict mode below decides whether that fails the page.
				r.logger.Warn("image not downloaded", "page", pageID, "url", u, "err", err)
				continue
			}
			if err != nil {
				return "", nil, err
			}
			saved = append(saved, local)
		}
	}

	markdown, err := r.Converter.Convert(blocks)
	if err != nil {
		return "", nil, err
	}

	markdown, err = r.rewriter.Rewrite(ctx, markdown)
	if err != nil {
		return "", nil, err
	}

	if r.StrictImageURLs {
		if u := firstRemoteImage(markdown); u != "" {
			return "", nil, fmt.Errorf("%w: %s", ErrUnresolvedRemoteAsset, u)
		}
	}

	return markdown, saved, nil
}

// errImageSkipped marks an image we couldn't fetch. It leaves the URL remote but doesn't fail the
// page by itself.
var errImageSkipped = errors.New("image skipped")

func (r *syncRun) downloadImage(ctx context.Context, pageID, rawURL string) (string, error) {
	key := ImageKey(rawURL)
	if key == "" {
		return "", fmt.Errorf("%w: can't tell which object %s is", errImageSkipped, rawURL)
	}

	var local string
	err := r.limiter.Do(ctx, "download image", func(ctx context.Context) error {
		var err error
		local, err = r.Downloader.Download(ctx, pageID, rawURL)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", errImageSkipped, err)
	}

	if err := r.Images.SaveImage(ctx, key, local); err != nil {
		return "", fmt.Errorf("%w: image cache: %w", ErrExternalCall, err)
	}
	r.logger.Debug("saved image", "page", pageID, "path", local)
	return local, nil
}

func (r *syncRun) runCallbacks(ctx context.Context, saved []string) {
	if r.ImageCallback == nil {
		return
	}
	for _, local := range saved {
		err := r.limiter.Do(ctx, "image callback", func(ctx context.Context) error {
			return r.ImageCallback(ctx, local)
		})
		if err != nil {
			r.logger.Warn("image callback failed", "path", local, "err", err)
			r.outcome.callbackFailed(local, fmt.Errorf("%w: %s: %w", ErrCallback, local, err))
		}
	}
}

// firstRemoteImage returns the first signed S3 image URL left in the Markdown, if any.
func firstRemoteImage(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if !IsS3URL(line) {
			continue
		}
		if m := s3ImageRef.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}
