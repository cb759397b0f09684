// Package client provides a Slack Web API client exposing the listing
// capabilities consumed by the fetch engine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fruitsalade/slackfiles/pkg/models"
	"github.com/fruitsalade/slackfiles/pkg/protocol"
	"github.com/fruitsalade/slackfiles/pkg/retry"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// ErrNotOK is wrapped by APIError when Slack answers ok=false.
var ErrNotOK = errors.New("slack api returned ok=false")

// APIError carries the Slack "error" code of an ok=false response.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Code)
}

func (e *APIError) Unwrap() error { return ErrNotOK }

// StatusError is returned for non-200 HTTP responses.
type StatusError struct {
	Method     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server returned %d", e.Method, e.StatusCode)
}

// Client calls Slack Web API methods with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	Transport http.RoundTripper // wrapped with otelhttp; nil means a tuned default
}

// DefaultTransport returns the tuned transport New uses when
// Config.Transport is nil. Callers wrapping the transport start from it.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	transport := cfg.Transport
	if transport == nil {
		transport = DefaultTransport()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// ListFiles fetches one page of files.list.
func (c *Client) ListFiles(ctx context.Context, page, count int) (*protocol.Page, error) {
	return c.ListPage(ctx, "files.list", "files", page, count)
}

// ListPage fetches one page of a paginated listing method, collecting the
// items found under itemsKey. ok=false is reported on the page, not as an error.
func (c *Client) ListPage(ctx context.Context, method, itemsKey string, page, count int) (*protocol.Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("count", strconv.Itoa(count))

	obj, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}

	items, err := records(obj, itemsKey)
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("%s: decode items: %w", method, err))
	}
	result := &protocol.Page{
		Items: map[string][]models.Record{itemsKey: items},
	}
	result.OK, _ = obj.GetBoolean("ok")
	result.Error, _ = obj.GetString("error")

	if paging, err := obj.GetObject("paging"); err == nil {
		p := &protocol.Paging{}
		pageNum, errPage := paging.GetInt64("page")
		pages, errPages := paging.GetInt64("pages")
		if errPage == nil && errPages == nil {
			p.Page, p.Pages = int(pageNum), int(pages)
			if n, err := paging.GetInt64("count"); err == nil {
				p.Count = int(n)
			}
			if n, err := paging.GetInt64("total"); err == nil {
				p.Total = int(n)
			}
			result.Paging = p
		}
	}
	return result, nil
}

// ListChannels fetches the channel list in one call.
func (c *Client) ListChannels(ctx context.Context) (*protocol.Listing, error) {
	params := url.Values{}
	params.Set("exclude_archived", "false")
	return c.listAll(ctx, "channels.list", "channels", params)
}

// ListUsers fetches the member list in one call.
func (c *Client) ListUsers(ctx context.Context) (*protocol.Listing, error) {
	return c.listAll(ctx, "users.list", "members", url.Values{})
}

func (c *Client) listAll(ctx context.Context, method, itemsKey string, params url.Values) (*protocol.Listing, error) {
	obj, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	items, err := records(obj, itemsKey)
	if err != nil {
		return nil, fmt.Errorf("%s: decode items: %w", method, err)
	}
	result := &protocol.Listing{Items: items}
	result.OK, _ = obj.GetBoolean("ok")
	result.Error, _ = obj.GetString("error")
	return result, nil
}

// DeleteFile deletes one file by id.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	params := url.Values{}
	params.Set("file", fileID)

	obj, err := c.call(ctx, "files.delete", params)
	if err != nil {
		return err
	}
	if ok, _ := obj.GetBoolean("ok"); !ok {
		code, _ := obj.GetString("error")
		return &APIError{Method: "files.delete", Code: code}
	}
	return nil
}

// call performs one API request. Network failures and 5xx/429 responses
// are marked retryable.
func (c *Client) call(ctx context.Context, method string, params url.Values) (*jason.Object, error) {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("%s: %w", method, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{Method: method, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.Retryable(statusErr)
		}
		return nil, statusErr
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("%s: decode response: %w", method, err))
	}
	return obj, nil
}

// records decodes the objects listed under key into Records, keeping
// numbers as json.Number. A missing or non-array key yields no records.
func records(obj *jason.Object, key string) ([]models.Record, error) {
	items, err := obj.GetObjectArray(key)
	if err != nil {
		return []models.Record{}, nil
	}
	out := make([]models.Record, 0, len(items))
	for i, item := range items {
		raw, err := item.Marshal()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec models.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
