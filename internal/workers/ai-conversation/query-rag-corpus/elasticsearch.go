// internal/workers/ai-conversation/query-rag-corpus/elasticsearch.go
package queryragcorpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"rag-answer-service/internal/common/config"
	apperrors "rag-answer-service/internal/common/errors"
	"rag-answer-service/internal/rag/lookup"
)

// ElasticsearchRetriever runs a multi_match query over indexed chunks. Hit
// scores are divided by max_score so they land in [0, 1].
type ElasticsearchRetriever struct {
	client *elasticsearch.Client
	index  string
	topK   int
}

func NewElasticsearchRetriever(client *elasticsearch.Client, index string, topK int) *ElasticsearchRetriever {
	return &ElasticsearchRetriever{client: client, index: index, topK: topK}
}

func (r *ElasticsearchRetriever) Name() string { return BackendElasticsearch }

func (r *ElasticsearchRetriever) Retrieve(ctx context.Context, d config.Deployment, queryText string) (map[string]interface{}, error) {
	query := map[string]interface{}{
		"size": r.topK,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  queryText,
						"fields": []string{"text^2", "title"},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"corpus_id": d.CorpusID}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return nil, apperrors.NewNetworkError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 500))
		if res.StatusCode == 404 || res.StatusCode == 403 {
			return nil, apperrors.NewRetrievalError(res.StatusCode, string(raw))
		}
		return nil, apperrors.NewRetrievalFailedError(BackendElasticsearch, fmt.Errorf("search failed: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			MaxScore float64 `json:"max_score"`
			Hits     []struct {
				Score  float64                `json:"_score"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewRetrievalFailedError(BackendElasticsearch, fmt.Errorf("decode response: %w", err))
	}

	contexts := make([]interface{}, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		score := hit.Score
		if parsed.Hits.MaxScore > 0 {
			score = hit.Score / parsed.Hits.MaxScore
		}
		contexts = append(contexts, map[string]interface{}{
			"text":      lookup.FirstString(hit.Source, lookup.Paths("text", "content")),
			"title":     lookup.FirstString(hit.Source, lookup.Paths("title")),
			"sourceUri": lookup.FirstString(hit.Source, lookup.Paths("source_uri", "sourceUri", "uri")),
			"score":     score,
		})
	}
	return map[string]interface{}{"contexts": contexts}, nil
}
