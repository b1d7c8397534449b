// Package github is a small client for the GitHub REST API endpoints the
// importer and analysis pipeline need: the user's starred repositories,
// repository metadata and raw READMEs.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/model"
)

// perPage is the largest page GitHub serves.
const perPage = 100

// maxReadmeBytes stops one enormous README from being held in memory.
const maxReadmeBytes = 1 << 20

// Client talks to the GitHub REST API as one user.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient authenticates every request with token. An empty token makes
// anonymous requests, which GitHub rate-limits heavily and which cannot
// list starred repositories. baseURL defaults to the public API.
func NewClient(ctx context.Context, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = auth.DefaultGitHubAPIURL
	}
	httpClient := http.DefaultClient
	if token != "" {
		// oauth2 adds "Authorization: Bearer <token>" to each request.
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

type ownerJSON struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

type repoJSON struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Owner           ownerJSON `json:"owner"`
	Description     *string   `json:"description"`
	StargazersCount int       `json:"stargazers_count"`
	HTMLURL         string    `json:"html_url"`
	Language        *string   `json:"language"`
	PushedAt        time.Time `json:"pushed_at"`
	Archived        bool      `json:"archived"`
}

func (r repoJSON) fields() model.StarFields {
	f := model.StarFields{
		Provider:   auth.ProviderGitHub,
		ProviderID: strconv.FormatInt(r.ID, 10),
		Owner:      r.Owner.Login,
		OwnerID:    strconv.FormatInt(r.Owner.ID, 10),
		Name:       r.Name,
		StarCount:  r.StargazersCount,
		RepoURL:    r.HTMLURL,
	}
	if r.Description != nil {
		f.Description = *r.Description
	}
	return f
}

// Repository is the metadata the pipeline scores on.
type Repository struct {
	Fields   model.StarFields
	Language string
	PushedAt time.Time
	Archived bool
}

// ListStarred returns every repository the authenticated user has starred,
// following the Link header across pages.
func (c *Client) ListStarred(ctx context.Context) ([]model.StarFields, error) {
	next := fmt.Sprintf("%s/user/starred?per_page=%d", c.baseURL, perPage)

	var all []model.StarFields
	for next != "" {
		var page []repoJSON
		resp, err := c.get(ctx, next, "application/vnd.github+json")
		if err != nil {
			return nil, err
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("github: decoding starred page: %w", err)
		}

		for _, r := range page {
			all = append(all, r.fields())
		}
		next = nextPage(resp.Header.Get("Link"))
	}
	return all, nil
}

// Repository fetches one repository's metadata.
func (c *Client) Repository(ctx context.Context, owner, name string) (*Repository, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, name), "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var r repoJSON
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("github: decoding %s/%s: %w", owner, name, err)
	}
	repo := &Repository{Fields: r.fields(), PushedAt: r.PushedAt, Archived: r.Archived}
	if r.Language != nil {
		repo.Language = *r.Language
	}
	return repo, nil
}

// FetchReadme returns the repository's README as raw text. A repository
// without one is apperror.ErrNotFound.
func (c *Client) FetchReadme(ctx context.Context, owner, name string) (string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, owner, name), "application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadmeBytes))
	if err != nil {
		return "", fmt.Errorf("github: reading README of %s/%s: %w", owner, name, err)
	}
	return string(body), nil
}

// get issues a GET and turns non-200 responses into errors. The caller
// closes the body on success.
func (c *Client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: GET %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, apperror.NotFound("GitHub resource", req.URL.Path)
	case http.StatusUnauthorized:
		return nil, apperror.AuthenticationFailed("github", fmt.Errorf("GET %s: %s", req.URL.Path, strings.TrimSpace(string(msg))), nil)
	}
	return nil, fmt.Errorf("github: GET %s returned %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
}

// nextPage extracts the rel="next" URL from a Link header, or "".
//
//	Link: <https://api.github.com/user/starred?page=2>; rel="next", <...?page=9>; rel="last"
func nextPage(link string) string {
	for part := range strings.SplitSeq(link, ",") {
		target, params, ok := strings.Cut(strings.TrimSpace(part), ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		return strings.Trim(strings.TrimSpace(target), "<>")
	}
	return ""
}
