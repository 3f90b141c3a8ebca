package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient speaks the OpenAI chat-completions wire format used by local
// servers, OpenAI, Groq and Azure OpenAI.
type HTTPClient struct {
	cfg      Config
	http     *http.Client
	observer Observer
	catalog  *Catalog
}

// NewHTTPClient builds the OpenAI-compatible backend.
func NewHTTPClient(cfg Config, observer Observer) *HTTPClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	c := &HTTPClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
	c.catalog = NewCatalog(c.fetchModels, time.Duration(cfg.CatalogTTLSec)*time.Second)
	return c
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	return runWithRetries(ctx, c.cfg, req, c.observer, func(ctx context.Context, s callSettings) (*CompleteResponse, error) {
		body := chatRequest{
			Model:       c.cfg.Model,
			Messages:    req.Messages,
			Stream:      false,
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
		}
		return c.doRequest(ctx, body)
	})
}

func (c *HTTPClient) doRequest(ctx context.Context, body chatRequest) (*CompleteResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadStatus, httpResp.StatusCode, truncate(string(respBody), 200))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmptyResponse, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = c.cfg.Model
	}
	return &CompleteResponse{Text: resp.Choices[0].Message.Content, Model: model}, nil
}

// completionsURL applies each provider's addressing rules to BaseURL.
func (c *HTTPClient) completionsURL() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	switch c.cfg.Provider {
	case ProviderAzure:
		return fmt.Sprintf("%s/deployments/%s/chat/completions?api-version=%s",
			base, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.AzureAPIVersion))
	case ProviderGroq:
		return base + "/openai/v1/chat/completions"
	case ProviderOpenAI:
		return base + "/v1/chat/completions"
	default:
		return base
	}
}

// modelsURL is where the provider lists its models.
func (c *HTTPClient) modelsURL() string {
	switch c.cfg.Provider {
	case ProviderAzure:
		return fmt.Sprintf("%s/models?api-version=%s",
			strings.TrimRight(c.cfg.BaseURL, "/"), url.QueryEscape(c.cfg.AzureAPIVersion))
	case ProviderLocal:
		base := strings.TrimRight(c.cfg.BaseURL, "/")
		return strings.TrimSuffix(base, "/chat/completions") + "/models"
	default:
		return strings.TrimSuffix(c.completionsURL(), "/chat/completions") + "/models"
	}
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.cfg.APIKey == "" {
		return
	}
	if c.cfg.Provider == ProviderAzure {
		req.Header.Set("api-key", c.cfg.APIKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *HTTPClient) fetchModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", err)
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Available is true when the provider's model list can be fetched.
func (c *HTTPClient) Available(ctx context.Context) bool {
	_, err := c.catalog.Models(ctx)
	return err == nil
}

// Catalog exposes the cached model list.
func (c *HTTPClient) Catalog() *Catalog {
	return c.catalog
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
