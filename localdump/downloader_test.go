package localdump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/notion-dump/notion"
	"github.com/toothbrush/notion-dump/pagecache"
)

type fakeSource struct {
	mu     sync.Mutex
	blocks map[string][]notion.Block
	errs   map[string]error
	calls  map[string]int

	delay          time.Duration
	inFlight, peak atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		blocks: map[string][]notion.Block{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeSource) FetchBlocks(ctx context.Context, pageID string) ([]notion.Block, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[pageID]++
	return f.blocks[pageID], f.errs[pageID]
}

func (f *fakeSource) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type fakeWriter struct {
	mu    sync.Mutex
	files map[string]string
}

func (w *fakeWriter) Write(ctx context.Context, page LocalMarkdown) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[page.RelativePath] = page.Content
	return nil
}

type fakeDownloader struct {
	calls atomic.Int32
	err   error
}

func (d *fakeDownloader) Download(ctx context.Context, pageID string, rawURL string) (string, error) {
	d.calls.Add(1)
	if d.err != nil {
		return "", d.err
	}
	return ImagePath("static", pageID, ImageKey(rawURL)), nil
}

type syncFixture struct {
	syncer     *Syncer
	source     *fakeSource
	cache      *pagecache.Memory
	writer     *fakeWriter
	downloader *fakeDownloader
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		source:     newFakeSource(),
		cache:      pagecache.NewMemory(),
		writer:     &fakeWriter{files: map[string]string{}},
		downloader: &fakeDownloader{},
	}
	f.syncer = &Syncer{
		Source:     f.source,
		Pages:      f.cache,
		Images:     f.cache,
		Converter:  NewHTMLConverter(),
		Writer:     f.writer,
		Downloader: f.downloader,
		StaticDir:  "static",
		Progress:   io.Discard,
	}
	return f
}

func page(id, parent, parentType, name string, published bool, edited string) PageRecord {
	return PageRecord{
		ID:             id,
		ParentID:       parent,
		ParentType:     parentType,
		Name:           name,
		Published:      published,
		CreatedTime:    "2024-01-01T00:00:00Z",
		LastEditedTime: edited,
		Page:           &notion.Page{ID: id, Properties: map[string]notion.Property{}},
	}
}

func paragraph(s string) notion.Block {
	return textBlock("paragraph", s)
}

func TestSyncerRun(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture()

	require.NoError(t, f.cache.PutPage(ctx, "a", pagecache.Entry{LastEditedTime: "2024-03-01T00:00:00Z"}))
	require.NoError(t, f.cache.PutPage(ctx, "d", pagecache.Entry{LastEditedTime: "2024-03-01T00:00:00Z"}))

	f.source.blocks["a"] = []notion.Block{paragraph("alpha text"), imageBlock("i", legacyURL)}
	f.source.blocks["b"] = []notion.Block{paragraph("beta text")}

	outcome, err := f.syncer.Run(ctx, []PageRecord{
		page("a", testDB, notion.DatabaseParent, "Alpha", true, "2024-03-02T00:00:00Z"),
		page("b", testDB, notion.DatabaseParent, "Beta", true, "2024-03-02T00:00:00Z"),
		page("c", testDB, notion.DatabaseParent, "Gamma", false, "2024-03-02T00:00:00Z"),
		page("d", testDB, notion.DatabaseParent, "Delta", true, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha.md"}, outcome.Updated)
	assert.Equal(t, []string{"Beta.md"}, outcome.Created)
	assert.Equal(t, []string{"Delta.md"}, outcome.Skipped)
	assert.ElementsMatch(t, []string{"Alpha.md", "Beta.md"}, outcome.Written)
	assert.Empty(t, outcome.Failures)

	assert.Zero(t, f.source.callCount("c"), "excluded pages are never fetched")
	assert.Zero(t, f.source.callCount("d"), "unchanged pages are never fetched")
	assert.NotContains(t, f.writer.files, "Gamma.md")
	assert.NotContains(t, f.writer.files, "Delta.md")

	alpha := f.writer.files["Alpha.md"]
	assert.Contains(t, alpha, "title: Alpha")
	assert.Contains(t, alpha, "alpha text")
	assert.Contains(t, alpha, "](/pimages/a/4f1c-shot.png)")
	assert.NotContains(t, alpha, "amazonaws.com")
	assert.EqualValues(t, 1, f.downloader.calls.Load())

	e, ok, err := f.cache.GetPage(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-03-02T00:00:00Z", e.LastEditedTime)

	_, ok, err = f.cache.GetPage(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = f.cache.GetPage(ctx, "c")
	require.NoError(t, err)
	assert.False(t, ok)

	// a second run has nothing to do
	again, err := f.syncer.Run(ctx, []PageRecord{
		page("a", testDB, notion.DatabaseParent, "Alpha", true, "2024-03-02T00:00:00Z"),
		page("b", testDB, notion.DatabaseParent, "Beta", true, "2024-03-02T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alpha.md", "Beta.md"}, again.Skipped)
	assert.Equal(t, 1, f.source.callCount("a"))
}

func TestSyncerForce(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture()
	f.syncer.Force = true
	require.NoError(t, f.cache.PutPage(ctx, "a", pagecache.Entry{LastEditedTime: "2024-03-01T00:00:00Z"}))

	outcome, err := f.syncer.Run(ctx, []PageRecord{
		page("a", testDB, notion.DatabaseParent, "Alpha", true, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha.md"}, outcome.Updated)
	assert.Equal(t, 1, f.source.callCount("a"))
}

func TestSyncerIsolatesFailures(t *testing.T) {
	f := newSyncFixture()
	f.source.errs["bad"] = errors.New("HTTP 502")
	f.source.blocks["good"] = []notion.Block{paragraph("fine")}

	noTitle := page("untitled", testDB, notion.DatabaseParent, "", true, "2024-03-02T00:00:00Z")
	badStamp := page("stamp", testDB, notion.DatabaseParent, "Stamp", true, "last tuesday")
	require.NoError(t, f.cache.PutPage(context.Background(), "stamp", pagecache.Entry{LastEditedTime: "2024-01-01T00:00:00Z"}))

	outcome, err := f.syncer.Run(context.Background(), []PageRecord{
		page("bad", testDB, notion.DatabaseParent, "Bad", true, "2024-03-02T00:00:00Z"),
		page("good", testDB, notion.DatabaseParent, "Good", true, "2024-03-02T00:00:00Z"),
		noTitle,
		badStamp,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Good.md", ".md"}, outcome.Created, "an untitled page is still written")
	require.Len(t, outcome.Failures, 2)
	assert.ErrorIs(t, outcome.Failures["bad"], ErrExternalCall)
	assert.Contains(t, outcome.Failures["bad"].Error(), "HTTP 502")
	assert.Error(t, outcome.Failures["stamp"])

	_, ok, err := f.cache.GetPage(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok, "failed pages stay out of the cache so the next run retries them")
}

func TestSyncerIndexPagesAreNotFetched(t *testing.T) {
	f := newSyncFixture()
	f.source.blocks["kid"] = []notion.Block{paragraph("kid text")}

	outcome, err := f.syncer.Run(context.Background(), []PageRecord{
		page("parent", testDB, notion.DatabaseParent, "Parent", false, "2024-03-02T00:00:00Z"),
		page("kid", "parent", notion.PageParent, "Kid", true, "2024-03-02T00:00:00Z"),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Parent/_index.md", "Parent/Kid.md"}, outcome.Created)
	assert.Zero(t, f.source.callCount("parent"))
	assert.Equal(t, 1, f.source.callCount("kid"))

	index := f.writer.files["Parent/_index.md"]
	assert.Contains(t, index, "title: Parent")
	assert.True(t, len(index) > 0 && index[len(index)-4:] == "---\n", "index page has an empty body: %q", index)
}

func TestSyncerPinnedPathDecidesBodyFetch(t *testing.T) {
	f := newSyncFixture()
	f.source.blocks["leaf"] = []notion.Block{paragraph("leaf body")}
	f.source.blocks["box"] = []notion.Block{paragraph("box body")}

	leaf := page("leaf", testDB, notion.DatabaseParent, "Leaf", true, "2024-03-02T00:00:00Z")
	leaf.Filepath = "posts/_index.md"
	box := page("box", testDB, notion.DatabaseParent, "Box", true, "2024-03-02T00:00:00Z")
	box.Filepath = "about.md"

	outcome, err := f.syncer.Run(context.Background(), []PageRecord{
		leaf,
		box,
		page("kid", "box", notion.PageParent, "Kid", false, "2024-03-02T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"posts/_index.md", "about.md"}, outcome.Created)

	assert.Zero(t, f.source.callCount("leaf"), "a page pinned to an index file is an index")
	assert.NotContains(t, f.writer.files["posts/_index.md"], "leaf body")

	assert.Equal(t, 1, f.source.callCount("box"), "a container pinned to a plain file keeps its body")
	assert.Contains(t, f.writer.files["about.md"], "box body")
}

func TestSyncerNothingIncluded(t *testing.T) {
	f := newSyncFixture()

	done := make(chan struct{})
	var outcome *Outcome
	go func() {
		defer close(done)
		var err error
		outcome, err = f.syncer.Run(context.Background(), []PageRecord{
			page("a", testDB, notion.DatabaseParent, "Alpha", false, "2024-03-02T00:00:00Z"),
		})
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run with no included pages did not return")
	}
	require.NotNil(t, outcome)
	assert.Empty(t, outcome.Created)
	assert.Empty(t, f.writer.files)
}

func TestSyncerMalformedHierarchy(t *testing.T) {
	f := newSyncFixture()

	_, err := f.syncer.Run(context.Background(), []PageRecord{
		page("x", "y", notion.PageParent, "X", true, "2024-03-02T00:00:00Z"),
		page("y", "x", notion.PageParent, "Y", true, "2024-03-02T00:00:00Z"),
	})
	assert.ErrorIs(t, err, ErrMalformedHierarchy)
	assert.Empty(t, f.writer.files)
}

func TestSyncerServerModeAndStrictImages(t *testing.T) {
	records := []PageRecord{page("a", testDB, notion.DatabaseParent, "Alpha", true, "2024-03-02T00:00:00Z")}

	t.Run("server mode leaves remote URLs", func(t *testing.T) {
		f := newSyncFixture()
		f.syncer.ServerMode = true
		f.source.blocks["a"] = []notion.Block{imageBlock("i", prodURL)}

		outcome, err := f.syncer.Run(context.Background(), records)
		require.NoError(t, err)
		assert.Empty(t, outcome.Failures)
		assert.Zero(t, f.downloader.calls.Load())
		assert.Contains(t, f.writer.files["Alpha.md"], prodURL)
	})

	t.Run("server mode reuses earlier downloads", func(t *testing.T) {
		f := newSyncFixture()
		f.syncer.ServerMode = true
		f.syncer.StrictImageURLs = true
		f.source.blocks["a"] = []notion.Block{imageBlock("i", prodURL)}
		require.NoError(t, f.cache.SaveImage(context.Background(), ImageKey(prodURL), "static/pimages/a/old.webp"))

		outcome, err := f.syncer.Run(context.Background(), records)
		require.NoError(t, err)
		assert.Empty(t, outcome.Failures)
		assert.Contains(t, f.writer.files["Alpha.md"], "](/pimages/a/old.webp)")
	})

	t.Run("strict fails the page", func(t *testing.T) {
		f := newSyncFixture()
		f.syncer.ServerMode = true
		f.syncer.StrictImageURLs = true
		f.source.blocks["a"] = []notion.Block{imageBlock("i", prodURL)}

		outcome, err := f.syncer.Run(context.Background(), records)
		require.NoError(t, err)
		require.Contains(t, outcome.Failures, "a")
		assert.ErrorIs(t, outcome.Failures["a"], ErrUnresolvedRemoteAsset)
		assert.Contains(t, outcome.Failures["a"].Error(), prodURL)
		assert.Empty(t, f.writer.files)
	})

	t.Run("download failure leaves the URL remote", func(t *testing.T) {
		f := newSyncFixture()
		f.downloader.err = errors.New("HTTP 403")
		f.source.blocks["a"] = []notion.Block{paragraph("still here"), imageBlock("i", prodURL)}

		outcome, err := f.syncer.Run(context.Background(), records)
		require.NoError(t, err)
		assert.Empty(t, outcome.Failures)
		assert.Equal(t, []string{"Alpha.md"}, outcome.Created)
		assert.Contains(t, f.writer.files["Alpha.md"], "still here")
		assert.Contains(t, f.writer.files["Alpha.md"], prodURL)
	})

	t.Run("download failure under strict fails the page", func(t *testing.T) {
		f := newSyncFixture()
		f.syncer.StrictImageURLs = true
		f.downloader.err = errors.New("HTTP 403")
		f.source.blocks["a"] = []notion.Block{imageBlock("i", prodURL)}

		outcome, err := f.syncer.Run(context.Background(), records)
		require.NoError(t, err)
		assert.ErrorIs(t, outcome.Failures["a"], ErrUnresolvedRemoteAsset)
		assert.Empty(t, f.writer.files)
	})

	t.Run("image without a usable key is left remote", func(t *testing.T) {
		svg := "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws-1/9e2a/diagram.svg?X-Amz-Signature=def"
		f := newSyncFixture()
		f.source.blocks["a"] = []notion.Block{imageBlock("i", svg)}

		outcome, err := f.syncer.Run(context.Background(), records)
		require.NoError(t, err)
		assert.Empty(t, outcome.Failures)
		assert.Zero(t, f.downloader.calls.Load())
		assert.Contains(t, f.writer.files["Alpha.md"], svg)
	})
}

func TestSyncerCallbacks(t *testing.T) {
	f := newSyncFixture()
	f.source.blocks["a"] = []notion.Block{imageBlock("i", legacyURL), imageBlock("j", prodURL)}

	var mu sync.Mutex
	seen := []string{}
	f.syncer.ImageCallback = func(ctx context.Context, localPath string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, localPath)
		if localPath == ImagePath("static", "a", ImageKey(prodURL)) {
			return errors.New("exit status 1")
		}
		return nil
	}

	outcome, err := f.syncer.Run(context.Background(), []PageRecord{
		page("a", testDB, notion.DatabaseParent, "Alpha", true, "2024-03-02T00:00:00Z"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha.md"}, outcome.Created, "callback failures don't fail the page")
	assert.Empty(t, outcome.Failures)
	assert.Len(t, seen, 2)

	failed := ImagePath("static", "a", ImageKey(prodURL))
	require.Contains(t, outcome.CallbackFailures, failed)
	assert.ErrorIs(t, outcome.CallbackFailures[failed], ErrCallback)
}

func TestSyncerDryRun(t *testing.T) {
	f := newSyncFixture()
	f.syncer.DryRun = true
	f.source.blocks["a"] = []notion.Block{imageBlock("i", legacyURL)}

	outcome, err := f.syncer.Run(context.Background(), []PageRecord{
		page("a", testDB, notion.DatabaseParent, "Alpha", true, "2024-03-02T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha.md"}, outcome.Created)
	assert.Empty(t, outcome.Written, "nothing is written on a dry run")
	assert.Zero(t, f.downloader.calls.Load())

	_, ok, err := f.cache.GetPage(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncerBoundsConcurrency(t *testing.T) {
	f := newSyncFixture()
	f.syncer.Concurrency = 3
	f.source.delay = 5 * time.Millisecond

	records := []PageRecord{}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("p%02d", i)
		f.source.blocks[id] = []notion.Block{paragraph(id)}
		records = append(records, page(id, testDB, notion.DatabaseParent, id, true, "2024-03-02T00:00:00Z"))
	}

	outcome, err := f.syncer.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, outcome.Created, 20)
	assert.LessOrEqual(t, f.source.peak.Load(), int32(3))
}
