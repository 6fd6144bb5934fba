// Package noderpc is a thin client for the two storage-node RPC operations
// this service depends on (spec.md §6): listing the recursive pin set, and
// listing a directory CID's children. Retries use the same backoff policy
// as the gateway client.
package noderpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client talks to the storage node's RPC surface.
type Client struct {
	base       string
	httpClient *http.Client
	retries    uint64
}

// New builds a noderpc Client. base is NODE_RPC_BASE, e.g. "http://node:5001/api/v0".
func New(base string, requestTimeout time.Duration, retries uint64) *Client {
	return &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		retries:    retries,
	}
}

type pinsResponse struct {
	Keys map[string]json.RawMessage `json:"keys"`
}

// Pins returns every key in the node's recursive pin set (spec.md §6
// "POST /pins -> {keys: {<cid>: {...}}}").
func (c *Client) Pins(ctx context.Context) ([]string, error) {
	var parsed pinsResponse
	if err := c.post(ctx, "/pins", nil, &parsed); err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	keys := make([]string, 0, len(parsed.Keys))
	for k := range parsed.Keys {
		keys = append(keys, k)
	}
	return keys, nil
}

// LsLink is one entry in a directory listing.
type LsLink struct {
	Hash string `json:"Hash"`
	Cid  string `json:"Cid"`
	Name string `json:"Name"`
	Size int64  `json:"Size"`
	Type int    `json:"Type"`
}

// CID returns whichever of Hash/Cid the node populated; some RPC responses
// use one field, some the other.
func (l LsLink) CID() string {
	if l.Hash != "" {
		return l.Hash
	}
	return l.Cid
}

type lsObject struct {
	Links []LsLink `json:"Links"`
}

type lsResponse struct {
	Objects []lsObject `json:"Objects"`
}

// Ls lists the direct children of a directory CID (spec.md §6
// "POST /ls?arg=<cid> -> {Objects:[{Links:[...]}]}").
func (c *Client) Ls(ctx context.Context, cid string) ([]LsLink, error) {
	var parsed lsResponse
	path := "/ls?arg=" + url.QueryEscape(cid)
	if err := c.post(ctx, path, nil, &parsed); err != nil {
		return nil, fmt.Errorf("listing %s: %w", cid, err)
	}
	var links []LsLink
	for _, obj := range parsed.Objects {
		links = append(links, obj.Links...)
	}
	return links, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var resp *http.Response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("node RPC %s: status %d", path, r.StatusCode)
		}
		resp = r
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node RPC %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
