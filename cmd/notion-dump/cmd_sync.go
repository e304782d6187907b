/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/toothbrush/notion-dump/localdump"
	"github.com/toothbrush/notion-dump/pagecache"
)

var syncUsage = strings.TrimSpace(`
Fetch every published page of the database and write it into the Hugo site.  Pages that haven't
been edited since the last sync are skipped, unless you pass --force.
`)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download changed pages into the site",
	Long:  syncUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

var (
	Force           bool
	WithVCR         bool
	ServerMode      bool
	StrictImageURLs bool
	WriteMarkdown   bool
	Concurrency     int

	ContentDir         string
	StaticDir          string
	CacheDB            string
	Author             string
	UTCOffset          string
	FrontMatterFormat  string
	PostDownloadCmd    []string
	CustomProperties   []string
	RequiredProperties []string
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVarP(&Force, "force", "f", false, "process every page, skipping the last-edited check")
	syncCmd.Flags().BoolVar(&WithVCR, "with-vcr", false, "use go-vcr to cache responses")
	syncCmd.Flags().BoolVar(&ServerMode, "server", false, "don't download images (e.g. when running under hugo server)")
	syncCmd.Flags().BoolVar(&StrictImageURLs, "strict-image-urls", false, "fail a page if an expiring S3 image URL is left in it")
	syncCmd.Flags().BoolVar(&WriteMarkdown, "write-markdown", true, "actually write files; false means dry run")
	syncCmd.Flags().IntVar(&Concurrency, "concurrency", localdump.DefaultConcurrency, "maximum Notion/HTTP/disk calls in flight")

	syncCmd.Flags().StringVar(&ContentDir, "content-dir", "content", "where pages go, relative to --store")
	syncCmd.Flags().StringVar(&StaticDir, "static-dir", "static", "Hugo's static directory, relative to --store; images go below it")
	syncCmd.Flags().StringVar(&CacheDB, "cache-db", ".notion-dump/cache.db", "page cache database, relative to --store")
	syncCmd.Flags().StringVar(&Author, "author", localdump.DefaultAuthor, "author for pages without an Author property")
	syncCmd.Flags().StringVar(&UTCOffset, "utc-offset", "", "offset for date-only values, like +09:00 (default UTC)")
	syncCmd.Flags().StringVar(&FrontMatterFormat, "frontmatter-format", "yaml", "yaml or toml")
	syncCmd.Flags().StringSliceVar(&PostDownloadCmd, "post-download-cmd", []string{}, "command run for each downloaded image, with its path appended")
	syncCmd.Flags().StringSliceVar(&CustomProperties, "custom-properties", []string{}, "extra properties to copy into front matter, as name:type (boolean or text)")
	syncCmd.Flags().StringSliceVar(&RequiredProperties, "required-properties", []string{}, "front matter keys a page must have, e.g. title,date")
}

// storeRelative resolves p against the site root, unless it's absolute already.
func storeRelative(store, p string) (string, error) {
	p, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("couldn't expand homedir: %w", err)
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Join(store, p), nil
}

func runSync(ctx context.Context) error {
	start := time.Now()

	if LocalStore == "" {
		return fmt.Errorf("sync: no location set for the Hugo site.  Use --store or set it in your config file")
	}

	store, err := homedir.Expand(LocalStore)
	if err != nil {
		return fmt.Errorf("sync: couldn't expand homedir: %w", err)
	}
	if _, err := os.Stat(store); err != nil {
		return fmt.Errorf("sync: couldn't stat store %s: %w", store, err)
	}

	contentDir, err := storeRelative(store, ContentDir)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	staticDir, err := storeRelative(store, StaticDir)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	cachePath, err := storeRelative(store, CacheDB)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if WriteMarkdown {
		if err := os.MkdirAll(contentDir, 0750); err != nil {
			return fmt.Errorf("sync: couldn't create directory %s: %w", contentDir, err)
		}
	}

	frontMatter, format, err := frontMatterOptions()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	api, stop, err := newAPI(ctx, WithVCR)
	defer stop() // Make sure recorder is stopped once done with it
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	records, err := listRecords(ctx, api)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	cache, err := pagecache.Open(cachePath)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	defer cache.Close()

	syncer := &localdump.Syncer{
		Source:    localdump.NotionSource{API: api},
		Pages:     cache,
		Images:    cache,
		Converter: localdump.NewHTMLConverter(),
		Writer: &localdump.DiskWriter{
			ContentDir:    contentDir,
			WriteMarkdown: WriteMarkdown,
		},
		Downloader: &localdump.HTTPImageDownloader{
			Client:    &http.Client{Timeout: time.Minute},
			StaticDir: staticDir,
		},

		Paths:       localdump.PathOptions{IndexFile: IndexFilename},
		FrontMatter: frontMatter,
		Format:      format,
		StaticDir:   staticDir,

		Force:           Force,
		ServerMode:      ServerMode,
		StrictImageURLs: StrictImageURLs,
		DryRun:          !WriteMarkdown,
		Concurrency:     Concurrency,
		ImageCallback:   postDownloadCallback(PostDownloadCmd),

		Logger:   slog.Default(),
		Progress: os.Stderr,
	}

	outcome, err := syncer.Run(ctx, records)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	total, err := cache.CountPages(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	printSummary(os.Stdout, outcome, summaryOptions{
		Verbose:     Verbose,
		DryRun:      !WriteMarkdown,
		CachedPages: total,
		Elapsed:     time.Since(start),
	})

	if len(outcome.Failures) > 0 {
		return fmt.Errorf("sync: %d pages failed", len(outcome.Failures))
	}
	return nil
}

func frontMatterOptions() (localdump.FrontMatterOptions, localdump.FrontMatterFormat, error) {
	loc, err := localdump.ParseUTCOffset(UTCOffset)
	if err != nil {
		return localdump.FrontMatterOptions{}, "", err
	}

	format, err := localdump.ParseFrontMatterFormat(FrontMatterFormat)
	if err != nil {
		return localdump.FrontMatterOptions{}, "", err
	}

	custom := []localdump.CustomProperty{}
	for _, c := range CustomProperties {
		prop, err := localdump.ParseCustomProperty(c)
		if err != nil {
			return localdump.FrontMatterOptions{}, "", err
		}
		custom = append(custom, prop)
	}

	return localdump.FrontMatterOptions{
		Author:           Author,
		Location:         loc,
		CustomProperties: custom,
		Required:         RequiredProperties,
	}, format, nil
}

// postDownloadCallback runs argv with the image path appended, e.g. an image optimiser.
func postDownloadCallback(argv []string) localdump.ImageCallback {
	if len(argv) == 0 {
		return nil
	}

	return func(ctx context.Context, localPath string) error {
		args := append(append([]string{}, argv[1:]...), localPath)
		out, err := exec.CommandContext(ctx, argv[0], args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("'%s': %w: %s", strings.Join(argv, " "), err, strings.TrimSpace(string(out)))
		}
		slog.Debug("post-download-cmd", "path", localPath, "output", strings.TrimSpace(string(out)))
		return nil
	}
}
