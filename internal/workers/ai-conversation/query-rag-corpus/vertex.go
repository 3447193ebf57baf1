// internal/workers/ai-conversation/query-rag-corpus/vertex.go
package queryragcorpus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"rag-answer-service/internal/common/config"
	apperrors "rag-answer-service/internal/common/errors"
	commonhttp "rag-answer-service/internal/common/http"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// TokenSourceFunc builds a credential source for a deployment.
type TokenSourceFunc func(ctx context.Context, d config.Deployment) (oauth2.TokenSource, error)

// DefaultTokenSource uses application default credentials.
func DefaultTokenSource(ctx context.Context, _ config.Deployment) (oauth2.TokenSource, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, err
	}
	return creds.TokenSource, nil
}

// VertexRetriever calls the Vertex AI RAG retrieveContexts endpoint. Token
// sources are cached per deployment and reuse tokens until they expire.
type VertexRetriever struct {
	client         *commonhttp.Client
	endpoint       string
	topK           int
	newTokenSource TokenSourceFunc

	mu     sync.Mutex
	tokens map[string]oauth2.TokenSource
}

func NewVertexRetriever(cfg *Config, tokens TokenSourceFunc) *VertexRetriever {
	if tokens == nil {
		tokens = DefaultTokenSource
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VertexRetriever{
		client:         commonhttp.NewClient(timeout),
		endpoint:       strings.TrimRight(cfg.APIEndpoint, "/"),
		topK:           cfg.TopK,
		newTokenSource: tokens,
		tokens:         make(map[string]oauth2.TokenSource),
	}
}

func (v *VertexRetriever) Name() string { return BackendVertex }

func (v *VertexRetriever) Retrieve(ctx context.Context, d config.Deployment, queryText string) (map[string]interface{}, error) {
	token, err := v.token(d)
	if err != nil {
		return nil, apperrors.NewAuthenticationError(err)
	}

	body := map[string]interface{}{
		"vertex_rag_store": map[string]interface{}{
			"rag_resources": []map[string]interface{}{
				{"rag_corpus": d.CorpusName()},
			},
		},
		"query": map[string]interface{}{
			"text":             queryText,
			"similarity_top_k": v.topK,
		},
	}

	status, respBody, err := v.client.PostJSON(ctx, v.url(d), map[string]string{
		"Authorization": "Bearer " + token.AccessToken,
	}, body)
	if err != nil {
		return nil, apperrors.NewNetworkError(err)
	}
	if status < 200 || status > 299 {
		return nil, apperrors.NewRetrievalError(status, truncate(string(respBody), 500))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, apperrors.NewRetrievalFailedError(BackendVertex, fmt.Errorf("decode response: %w", err))
	}
	return payload, nil
}

func (v *VertexRetriever) url(d config.Deployment) string {
	base := v.endpoint
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", d.Location)
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s:retrieveContexts", base, d.ProjectID, d.Location)
}

func (v *VertexRetriever) token(d config.Deployment) (*oauth2.Token, error) {
	ts, err := v.tokenSource(d)
	if err != nil {
		return nil, err
	}
	return ts.Token()
}

func (v *VertexRetriever) tokenSource(d config.Deployment) (oauth2.TokenSource, error) {
	key := d.ProjectID + "|" + d.Location
	v.mu.Lock()
	defer v.mu.Unlock()

	if ts, ok := v.tokens[key]; ok {
		return ts, nil
	}
	// Refreshes outlive any single request.
	ts, err := v.newTokenSource(context.Background(), d)
	if err != nil {
		return nil, err
	}
	ts = oauth2.ReuseTokenSource(nil, ts)
	v.tokens[key] = ts
	return ts, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
