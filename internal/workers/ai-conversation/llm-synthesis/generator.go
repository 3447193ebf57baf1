// internal/workers/ai-conversation/llm-synthesis/generator.go
package llmsynthesis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"rag-answer-service/internal/common/config"
)

const (
	ProviderVertex = "vertex"
	ProviderGemini = "gemini"
)

// Generator issues a single text generation call.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Provider is one row of the provider matrix: a generator bound to a region
// and the ordered models to try there.
type Provider struct {
	Name            string
	Region          string
	Models          []string
	MaxOutputTokens int32
	Generator       Generator
}

// ProviderSource yields the ordered provider matrix for a deployment.
type ProviderSource interface {
	Providers(d config.Deployment) []Provider
}

// genaiGenerator creates its client on first use and keeps it for the process.
// A failed construction is retried on the next call.
type genaiGenerator struct {
	clientConfig genai.ClientConfig

	mu     sync.Mutex
	client *genai.Client
}

func newGenAIGenerator(cc genai.ClientConfig) *genaiGenerator {
	return &genaiGenerator{clientConfig: cc}
}

func (g *genaiGenerator) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	cc := g.clientConfig
	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *genaiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: req.MaxOutputTokens,
		Temperature:     genai.Ptr(req.Temperature),
		TopP:            genai.Ptr(req.TopP),
	}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		gc,
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenAIProviders builds the matrix from Vertex regional clients plus an
// optional Gemini API key client. Clients are cached per project and region.
type GenAIProviders struct {
	cfg *Config

	mu         sync.Mutex
	generators map[string]Generator
}

func NewGenAIProviders(cfg *Config) *GenAIProviders {
	return &GenAIProviders{
		cfg:        cfg,
		generators: make(map[string]Generator),
	}
}

func (p *GenAIProviders) Providers(d config.Deployment) []Provider {
	var out []Provider
	for _, region := range p.regions(d.Location) {
		out = append(out, Provider{
			Name:            ProviderVertex,
			Region:          region,
			Models:          p.cfg.Models,
			MaxOutputTokens: p.cfg.MaxOutputTokens,
			Generator:       p.vertex(d.ProjectID, region),
		})
	}
	if d.APIKey != "" && len(p.cfg.SecondaryModels) > 0 {
		out = append(out, Provider{
			Name:            ProviderGemini,
			Models:          p.cfg.SecondaryModels,
			MaxOutputTokens: p.cfg.SecondaryMaxOutputTokens,
			Generator:       p.gemini(d.APIKey),
		})
	}
	return out
}

// regions puts the deployment location first when it is not already configured.
func (p *GenAIProviders) regions(location string) []string {
	if location == "" || location == "global" {
		return p.cfg.Regions
	}
	for _, r := range p.cfg.Regions {
		if r == location {
			return p.cfg.Regions
		}
	}
	return append([]string{location}, p.cfg.Regions...)
}

func (p *GenAIProviders) vertex(project, region string) Generator {
	return p.cached("vertex|"+project+"|"+region, genai.ClientConfig{
		Project:     project,
		Location:    region,
		Backend:     genai.BackendVertexAI,
		HTTPOptions: genai.HTTPOptions{BaseURL: p.cfg.VertexBaseURL},
	})
}

func (p *GenAIProviders) gemini(apiKey string) Generator {
	return p.cached("gemini|"+apiKey, genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: p.cfg.GeminiBaseURL},
	})
}

func (p *GenAIProviders) cached(key string, cc genai.ClientConfig) Generator {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.generators[key]; ok {
		return g
	}
	g := newGenAIGenerator(cc)
	p.generators[key] = g
	return g
}
