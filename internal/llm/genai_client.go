package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// genaiClient talks to Gemini through the Google Gen AI SDK.
type genaiClient struct {
	cfg      Config
	client   *genai.Client
	observer Observer
	catalog  *Catalog
}

func newGenAIClient(ctx context.Context, cfg Config, observer Observer) (*genaiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating genai client: %v", ErrConfig, err)
	}
	c := &genaiClient{cfg: cfg, client: client, observer: observer}
	c.catalog = NewCatalog(c.fetchModels, time.Duration(cfg.CatalogTTLSec)*time.Second)
	return c, nil
}

func (c *genaiClient) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	system, contents := toGenAIContents(req.Messages)

	return runWithRetries(ctx, c.cfg, req, c.observer, func(ctx context.Context, s callSettings) (*CompleteResponse, error) {
		gc := &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(s.temperature)),
		}
		if s.maxTokens > 0 {
			gc.MaxOutputTokens = int32(s.maxTokens)
		}
		if system != "" {
			gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, gc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrBadStatus, err)
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyResponse
		}
		return &CompleteResponse{Text: text, Model: c.cfg.Model}, nil
	})
}

func (c *genaiClient) Available(ctx context.Context) bool {
	_, err := c.catalog.Models(ctx)
	return err == nil
}

func (c *genaiClient) fetchModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	page, err := c.client.Models.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: listing models: %v", ErrUnavailable, err)
	}
	ids := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	return ids, nil
}

// toGenAIContents folds system messages into one instruction and maps the
// remaining turns onto Gemini's user/model roles.
func toGenAIContents(msgs []Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}
