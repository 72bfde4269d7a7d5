package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"

	popularTemplate  = "%s/%s/popular"
	detailTemplate   = "%s/%s/%d"
	keywordsTemplate = "%s/%s/%d/keywords"
	creditsTemplate  = "%s/%s/%d/credits"
	seasonTemplate   = "%s/tv/%d/season/%d"
	imageTemplate    = "%s/%s/%s"

	maxBodyBytes = 4 << 20
)

// Provider is the port the ingestion walker uses to read the TMDB catalog.
type Provider interface {
	ListPopular(ctx context.Context, kind Kind, page int) (*ListingPage, error)
	GetMovie(ctx context.Context, id int) (*MovieDetail, error)
	GetShow(ctx context.Context, id int) (*ShowDetail, error)
	GetKeywords(ctx context.Context, kind Kind, id int) ([]Keyword, error)
	GetCredits(ctx context.Context, kind Kind, id int) (*Credits, error)
	GetSeason(ctx context.Context, showID int, seasonNumber int) (*SeasonDetail, error)
}

// ImageFetcher streams image bytes from the TMDB image host.
type ImageFetcher interface {
	FetchImage(ctx context.Context, size string, path string) (io.ReadCloser, error)
}

type Config struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Timeout      time.Duration
}

// Client talks to the TMDB v3 API. Requests are plain GETs authenticated
// with the api_key query parameter and are never retried here.
// See https://developer.themoviedb.org/reference/intro/getting-started
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultImageBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.ImageBaseURL = strings.TrimRight(cfg.ImageBaseURL, "/")

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ListPopular fetches one 1-indexed page of the popular listing for kind.
func (c *Client) ListPopular(ctx context.Context, kind Kind, page int) (*ListingPage, error) {
	query := url.Values{"page": {strconv.Itoa(page)}}
	var listing ListingPage
	if err := c.getJSON(ctx, fmt.Sprintf(popularTemplate, c.config.BaseURL, kind), query, &listing); err != nil {
		return nil, err
	}

	return &listing, nil
}

func (c *Client) GetMovie(ctx context.Context, id int) (*MovieDetail, error) {
	var movie MovieDetail
	if err := c.getJSON(ctx, fmt.Sprintf(detailTemplate, c.config.BaseURL, KindMovie, id), nil, &movie); err != nil {
		return nil, err
	}

	return &movie, nil
}

func (c *Client) GetShow(ctx context.Context, id int) (*ShowDetail, error) {
	var show ShowDetail
	if err := c.getJSON(ctx, fmt.Sprintf(detailTemplate, c.config.BaseURL, KindShow, id), nil, &show); err != nil {
		return nil, err
	}

	return &show, nil
}

// GetKeywords returns the keywords of a movie or show. The two endpoints
// use different field names for the same list.
func (c *Client) GetKeywords(ctx context.Context, kind Kind, id int) ([]Keyword, error) {
	var resp keywordsResponse
	if err := c.getJSON(ctx, fmt.Sprintf(keywordsTemplate, c.config.BaseURL, kind, id), nil, &resp); err != nil {
		return nil, err
	}

	if kind == KindShow {
		return resp.Results, nil
	}
	return resp.Keywords, nil
}

func (c *Client) GetCredits(ctx context.Context, kind Kind, id int) (*Credits, error) {
	var credits Credits
	if err := c.getJSON(ctx, fmt.Sprintf(creditsTemplate, c.config.BaseURL, kind, id), nil, &credits); err != nil {
		return nil, err
	}

	return &credits, nil
}

// GetSeason fetches a season of a show, including its episode list.
func (c *Client) GetSeason(ctx context.Context, showID int, seasonNumber int) (*SeasonDetail, error) {
	var season SeasonDetail
	if err := c.getJSON(ctx, fmt.Sprintf(seasonTemplate, c.config.BaseURL, showID, seasonNumber), nil, &season); err != nil {
		return nil, err
	}

	return &season, nil
}

// FetchImage opens a streaming download of an image at the given size
// ("original", "w500", ...). The caller must close the returned body.
func (c *Client) FetchImage(ctx context.Context, size string, path string) (io.ReadCloser, error) {
	imageURL := fmt.Sprintf(imageTemplate, c.config.ImageBaseURL, size, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &UnknownRequestError{fmt.Sprintf("failed to create request for %s: %s", imageURL, err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnknownRequestError{fmt.Sprintf("failed to perform GET(%s): %s", imageURL, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FailedRequestError{HTTPCode: resp.StatusCode, TMDBCode: -1, Message: "image download failed", URL: imageURL}
	}

	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, target any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.config.APIKey)
	fullURL := endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to create request for %s: %s", endpoint, err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to perform GET(%s): %s", endpoint, redact(err.Error(), c.config.APIKey))}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr tmdbError
		if err != nil || json.Unmarshal(body, &apiErr) != nil {
			return &FailedRequestError{HTTPCode: resp.StatusCode, TMDBCode: -1, Message: "non-OK response could not be unmarshalled", URL: endpoint}
		}
		return &FailedRequestError{HTTPCode: resp.StatusCode, TMDBCode: apiErr.StatusCode, Message: apiErr.StatusMessage, URL: endpoint}
	}
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to read response body of %s: %s", endpoint, err)}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &DecodeError{URL: endpoint, Body: snippet(body), Err: err}
	}

	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}

func snippet(b []byte) string {
	return string(b[:min(len(b), 200)])
}
