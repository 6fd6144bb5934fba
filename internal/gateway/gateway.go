// Package gateway is a range-aware HTTP client for the content-addressed
// gateway, grounded on the teacher's external HTTP call conventions
// (context-scoped timeouts, wrapped errors) and enriched with
// cenkalti/backoff for bounded retry (spec.md §4.2).
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client fetches byte ranges from the gateway with bounded retries and a
// caller-supplied body-size cap.
type Client struct {
	base       string
	httpClient *http.Client
	retries    uint64
}

// New builds a gateway Client. base is the gateway's content root
// (GATEWAY_BASE), e.g. "http://gateway:8080".
func New(base string, requestTimeout time.Duration, retries uint64) *Client {
	return &Client{
		base:       base,
		httpClient: &http.Client{Timeout: requestTimeout},
		retries:    retries,
	}
}

// Response is the result of a single gateway fetch: the status, whether a
// Range header was honored, the total object length if known, and a
// size-capped body reader.
type Response struct {
	Status       int
	ContentType  string
	RangeIgnored bool
	TotalLength  int64
	Body         []byte
}

// Head issues a HEAD request for a CID's content, used by the type
// detector's initial probe (spec.md §4.3 step 1).
func (c *Client) Head(ctx context.Context, cid string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url(cid), nil)
	if err != nil {
		return nil, fmt.Errorf("building HEAD request for %s: %w", cid, err)
	}

	var resp *http.Response
	op := func() error {
		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		resp = r
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return fmt.Errorf("gateway HEAD %s: status %d", cid, resp.StatusCode)
		}
		return nil
	}
	if err := c.retry(ctx, op); err != nil {
		return nil, fmt.Errorf("HEAD %s: %w", cid, err)
	}
	defer resp.Body.Close()

	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		TotalLength: length,
	}, nil
}

// GetRange fetches [start, end] inclusive (end=-1 means "to EOF"), capping
// the body read at maxBytes even if the gateway ignores the Range header
// and returns the whole object (spec.md §4.2 "readBodyLimited").
func (c *Client) GetRange(ctx context.Context, cid string, start, end int64, maxBytes int64) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(cid), nil)
	if err != nil {
		return nil, fmt.Errorf("building GET request for %s: %w", cid, err)
	}
	if end >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	} else {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}

	var resp *http.Response
	op := func() error {
		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		resp = r
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return fmt.Errorf("gateway GET %s: status %d", cid, resp.StatusCode)
		}
		return nil
	}
	if err := c.retry(ctx, op); err != nil {
		return nil, fmt.Errorf("GET %s: %w", cid, err)
	}
	defer resp.Body.Close()

	rangeIgnored := resp.StatusCode == http.StatusOK && resp.Header.Get("Content-Range") == ""
	body, err := readLimited(resp.Body, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("reading body for %s: %w", cid, err)
	}

	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		// On a partial response Content-Length is the range's length; the
		// object's total length is the part after the "/" in Content-Range.
		length = 0
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			if total, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				length = total
			}
		}
	}
	return &Response{
		Status:       resp.StatusCode,
		RangeIgnored: rangeIgnored,
		TotalLength:  length,
		Body:         body,
	}, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}

func (c *Client) url(cid string) string {
	return c.base + "/content/" + cid
}

// retry wraps op with jittered exponential backoff bounded by c.retries
// retries after the first attempt, per spec.md §4.2 "bounded retries with jittered backoff".
func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	return backoff.Retry(op, b)
}
