package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"

	"github.com/toothbrush/notion-dump/localdump"
	"github.com/toothbrush/notion-dump/notion"
	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

const cassetteName = "fixtures/notion"

func authToken(ctx context.Context) (string, error) {
	if len(AuthTokenCmd) < 1 {
		return "", fmt.Errorf("please provide --auth-token-cmd")
	}

	tokenCmdOutput, err := exec.CommandContext(ctx, AuthTokenCmd[0], AuthTokenCmd[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("couldn't execute auth-token-cmd '%v': %w", AuthTokenCmd, err)
	}

	return strings.TrimSpace(strings.Split(string(tokenCmdOutput), "\n")[0]), nil
}

// newAPI logs in to Notion. With withVCR, responses are recorded to (and replayed from) a
// cassette; the returned stop func must then be called to save it.
func newAPI(ctx context.Context, withVCR bool) (*notion.API, func() error, error) {
	stop := func() error { return nil }

	token, err := authToken(ctx)
	if err != nil {
		return nil, stop, err
	}

	api, err := notion.NewAPI("", token)
	if err != nil {
		return nil, stop, fmt.Errorf("couldn't instantiate Notion API: %w", err)
	}

	if withVCR {
		// set up VCR recordings.
		opts := &recorder.Options{
			CassetteName:       cassetteName,
			Mode:               recorder.ModeReplayWithNewEpisodes,
			SkipRequestLatency: true,
			RealTransport:      http.DefaultTransport,
		}
		r, err := recorder.NewWithOptions(opts)
		if err != nil {
			return nil, stop, fmt.Errorf("couldn't set up go-vcr recording: %w", err)
		}

		// Never write the integration secret to disk
		hook := func(i *cassette.Interaction) error {
			delete(i.Request.Headers, "Authorization")
			return nil
		}
		r.AddHook(hook, recorder.AfterCaptureHook)
		r.SetReplayableInteractions(true)

		api.Client = r.GetDefaultClient()
		stop = r.Stop
		slog.Debug("recording HTTP traffic", "cassette", cassetteName)
	}

	user, err := api.CurrentUser(ctx)
	if err != nil {
		return nil, stop, fmt.Errorf("couldn't query current user: %w", err)
	}
	slog.Info("logged in to Notion", "name", user.Name, "id", user.ID, "type", user.Type)

	return api, stop, nil
}

// listRecords fetches the whole database listing.
func listRecords(ctx context.Context, api *notion.API) ([]localdump.PageRecord, error) {
	if DatabaseID == "" {
		return nil, fmt.Errorf("no database set.  Use --database-id or set database-id in your config file")
	}
	databaseID, err := notion.NormaliseID(DatabaseID)
	if err != nil {
		return nil, err
	}

	slog.Info("listing pages", "database", databaseID)
	pages, err := api.QueryAllPages(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	records, err := localdump.RecordsFromPages(pages)
	if err != nil {
		return nil, err
	}
	slog.Info("listed pages", "count", len(records))

	return records, nil
}
