package notion

import (
	"fmt"
	"net/http"
	"net/url"
)

// DefaultBaseURI is the public Notion REST endpoint.
const DefaultBaseURI = "https://api.notion.com"

// APIVersion is sent as the Notion-Version header on every request.
const APIVersion = "2022-06-28"

func NewAPI(baseURI string, token string) (*API, error) {
	if token == "" {
		return &API{}, fmt.Errorf("notion: auth token is empty, please check auth-token-cmd")
	}
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}

	u, err := url.ParseRequestURI(baseURI)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't parse REST API URL: %w", err)
	}

	a := &API{
		BaseURI: u,
		token:   token,
	}
	a.Client = &http.Client{}

	return a, nil
}

type API struct {
	// Usually https://api.notion.com, overridden in tests.
	BaseURI *url.URL

	// An HTTP client - you can substitute VCR or whatnot.
	Client *http.Client

	// Integration secret
	token string
}
