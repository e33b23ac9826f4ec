package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// ErrNotFound is returned when the server responds with 404.
var ErrNotFound = errors.New("not found")

// Block is a ledger block as served by the node.
type Block struct {
	Index        uint64 `json:"index"`
	Timestamp    int64  `json:"timestamp"`
	Data         string `json:"data"`
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
	Nonce        uint64 `json:"nonce"`
}

// Violation is one failed successor check in a VerifyReport.
type Violation struct {
	Position int    `json:"position"`
	Index    uint64 `json:"index"`
	Reason   string `json:"reason"`
}

// VerifyReport is the body of GET /chain/verify.
type VerifyReport struct {
	// Valid covers links and self-hashes only.
	Valid bool `json:"valid"`
	// PoWValid additionally requires every non-genesis hash to meet the
	// node's difficulty.
	PoWValid   bool        `json:"pow_valid"`
	Length     int         `json:"length"`
	Violations []Violation `json:"violations"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 APIError.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to one powchain node.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a Client for the node at baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Chain fetches every block in order.
func (c *Client) Chain(ctx context.Context) ([]Block, error) {
	var blocks []Block
	if err := c.getJSON(ctx, "/chain", &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Latest fetches the tail block.
func (c *Client) Latest(ctx context.Context) (*Block, error) {
	var b Block
	if err := c.getJSON(ctx, "/chain/latest", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Block fetches the block at position idx.
func (c *Client) Block(ctx context.Context, idx int) (*Block, error) {
	var b Block
	if err := c.getJSON(ctx, "/chain/blocks/"+strconv.Itoa(idx), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Verify asks the node to check its chain.
func (c *Client) Verify(ctx context.Context) (*VerifyReport, error) {
	var r VerifyReport
	if err := c.getJSON(ctx, "/chain/verify", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SubmitTransaction posts data to /transaction and returns the appended block.
func (c *Client) SubmitTransaction(ctx context.Context, data string) (*Block, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Block Block `json:"block"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp.Block, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts the "error" field of a JSON error body, falling back
// to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
