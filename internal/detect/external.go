package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/network-lumen/gateway-agent/internal/types"
)

// classifierClient calls the optional external classifier endpoint
// (spec.md §4.3 step 5 / §6 "EXTERNAL_CLASSIFIER_URL").
type classifierClient struct {
	url string
	hc  *http.Client
}

func newClassifierClient(url string, timeout time.Duration) *classifierClient {
	return &classifierClient{url: url, hc: &http.Client{Timeout: timeout}}
}

type classifierRequest struct {
	Size      int64  `json:"size"`
	HeadB64   string `json:"head_base64"`
	TailB64   string `json:"tail_base64"`
}

type classifierResponse struct {
	MIME       string  `json:"mime"`
	Ext        string  `json:"ext"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

func (c *classifierClient) classify(ctx context.Context, head, tail []byte) (*types.ExternalClassifierSignal, error) {
	reqBody := classifierRequest{
		Size:    int64(len(head) + len(tail)),
		HeadB64: base64.StdEncoding.EncodeToString(head),
		TailB64: base64.StdEncoding.EncodeToString(tail),
	}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("building classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var out classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding classifier response: %w", err)
	}

	conf := out.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return &types.ExternalClassifierSignal{
		MIME: out.MIME, Ext: out.Ext, Kind: out.Kind, Confidence: conf,
	}, nil
}
