package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

func (api *API) QueryDatabase(ctx context.Context, opts DatabaseQuery) (*PageList, error) {
	ep, err := api.getDatabaseQueryEndpoint(opts)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't get database query endpoint: %w", err)
	}

	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't encode query body: %w", err)
	}

	body, err := api.request(ctx, http.MethodPost, ep, payload)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't perform request: %w", err)
	}

	var pageList PageList
	if err := json.Unmarshal(body, &pageList); err != nil {
		return nil, fmt.Errorf("notion: couldn't parse json response: %w", err)
	}

	return &pageList, nil
}

func (api *API) GetBlockChildren(ctx context.Context, opts BlockChildrenQuery) (*BlockList, error) {
	ep, err := api.getBlockChildrenEndpoint(opts)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't get block children endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't perform request: %w", err)
	}

	var blockList BlockList
	if err := json.Unmarshal(body, &blockList); err != nil {
		return nil, fmt.Errorf("notion: couldn't parse json response: %w", err)
	}

	return &blockList, nil
}

// CurrentUser returns the bot user the integration token belongs to.
func (api *API) CurrentUser(ctx context.Context) (*User, error) {
	ep, err := api.getCurrentUserEndpoint()
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't get current user endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't perform http request: %w", err)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("notion: couldn't parse json response: %w", err)
	}

	return &user, nil
}

func (api *API) request(ctx context.Context, method string, url *url.URL, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't instantiate http request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Authorization", "Bearer "+api.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	response, err := api.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't perform http request: %w", err)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("notion: couldn't read http response body: %w", err)
	}

	if err := response.Body.Close(); err != nil {
		return nil, fmt.Errorf("notion: couldn't close response body: %w", err)
	}

	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return body, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("notion: authentication failed")
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("notion: rate limited (Retry-After: %s)", response.Header.Get("Retry-After"))
	}

	var apiErr ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return nil, fmt.Errorf("notion: %s: %s: %s", response.Status, apiErr.Code, apiErr.Message)
	}

	return nil, fmt.Errorf("notion: unknown HTTP response status: %s: %s", response.Status, url.String())
}
