package notion

import (
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
)

// getBlockChildrenEndpoint returns the API endpoint listing one level of children of a block:
// https://developers.notion.com/reference/get-block-children
func (a *API) getBlockChildrenEndpoint(opts BlockChildrenQuery) (*url.URL, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("notion: please provide block ID to list children")
	}

	ep, err := a.resolveEndpoint(fmt.Sprintf("/v1/blocks/%s/children", url.PathEscape(opts.ID)))
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// getDatabaseQueryEndpoint returns the API endpoint to POST a database query to:
// https://developers.notion.com/reference/post-database-query
func (a *API) getDatabaseQueryEndpoint(opts DatabaseQuery) (*url.URL, error) {
	if opts.DatabaseID == "" {
		return nil, fmt.Errorf("notion: please provide database ID to query")
	}

	return a.resolveEndpoint(fmt.Sprintf("/v1/databases/%s/query", url.PathEscape(opts.DatabaseID)))
}

// getCurrentUserEndpoint returns the API endpoint for the integration's bot user:
// https://developers.notion.com/reference/get-self
func (a *API) getCurrentUserEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/v1/users/me")
}

// Do a bit of error checking on endpoint format, and return it relative to the base URI.
func (a *API) resolveEndpoint(endpoint string) (*url.URL, error) {
	baseUri := a.BaseURI

	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("notion: failed to parse endpoint ref: %w", err)
	}

	return baseUri.ResolveReference(ref), nil
}
