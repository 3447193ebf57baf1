// internal/workers/ai-conversation/query-rag-corpus/handler_test.go
package queryragcorpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"

	"rag-answer-service/internal/common/config"
	"rag-answer-service/internal/common/database"
	apperrors "rag-answer-service/internal/common/errors"
	"rag-answer-service/internal/common/logger"
)

func createTestConfig() *Config {
	return &Config{
		Backend:  BackendVertex,
		TopK:     15,
		CacheTTL: time.Hour,
		Timeout:  5 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

var testDeployment = config.Deployment{ProjectID: "vet-project", Location: "europe-west3", CorpusID: "4611686018427387904"}

func staticTokens(calls *int32) TokenSourceFunc {
	return func(context.Context, config.Deployment) (oauth2.TokenSource, error) {
		atomic.AddInt32(calls, 1)
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", Expiry: time.Now().Add(time.Hour)}), nil
	}
}

// ==========================
// Vertex
// ==========================

func TestVertexRetriever_Retrieve(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"contexts":{"contexts":[{"sourceUri":"https://example.org/a.pdf","sourceDisplayName":"Cattle Handbook","text":"Anthrax is caused by Bacillus anthracis.","score":0.8}]}}`)
	}))
	defer server.Close()

	cfg := createTestConfig()
	cfg.APIEndpoint = server.URL
	var tokenCalls int32
	r := NewVertexRetriever(cfg, staticTokens(&tokenCalls))

	payload, err := r.Retrieve(context.Background(), testDeployment, "anthrax")
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), testDeployment, "anthrax")
	require.NoError(t, err)

	assert.Equal(t, "/v1/projects/vet-project/locations/europe-west3:retrieveContexts", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "token source is cached per deployment")

	store := gotBody["vertex_rag_store"].(map[string]interface{})
	resources := store["rag_resources"].([]interface{})
	assert.Equal(t, testDeployment.CorpusName(), resources[0].(map[string]interface{})["rag_corpus"])
	assert.Equal(t, float64(15), gotBody["query"].(map[string]interface{})["similarity_top_k"])
	assert.Contains(t, payload, "contexts")
}

func TestVertexRetriever_StatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantCode apperrors.ErrorCode
		wantHTTP int
	}{
		{status: http.StatusNotFound, wantCode: apperrors.ErrCodeRetrievalNotFound, wantHTTP: 404},
		{status: http.StatusForbidden, wantCode: apperrors.ErrCodeRetrievalForbidden, wantHTTP: 403},
		{status: http.StatusInternalServerError, wantCode: apperrors.ErrCodeRetrievalFailed, wantHTTP: 502},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			}))
			defer server.Close()

			cfg := createTestConfig()
			cfg.APIEndpoint = server.URL
			var calls int32
			_, err := NewVertexRetriever(cfg, staticTokens(&calls)).Retrieve(context.Background(), testDeployment, "q")

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode))
			assert.Equal(t, tt.wantHTTP, apperrors.HTTPStatus(err))
		})
	}
}

func TestVertexRetriever_TokenFailure(t *testing.T) {
	cfg := createTestConfig()
	cfg.APIEndpoint = "http://127.0.0.1:1"

	denied := func(context.Context, config.Deployment) (oauth2.TokenSource, error) {
		return nil, errors.New("iam: permission denied on resource")
	}
	_, err := NewVertexRetriever(cfg, denied).Retrieve(context.Background(), testDeployment, "q")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePermissionDenied))
	assert.Equal(t, http.StatusForbidden, apperrors.HTTPStatus(err))

	missing := func(context.Context, config.Deployment) (oauth2.TokenSource, error) {
		return nil, errors.New("could not find default credentials")
	}
	_, err = NewVertexRetriever(cfg, missing).Retrieve(context.Background(), testDeployment, "q")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthentication))
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
}

func TestVertexRetriever_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	cfg := createTestConfig()
	cfg.APIEndpoint = server.URL
	var calls int32
	_, err := NewVertexRetriever(cfg, staticTokens(&calls)).Retrieve(context.Background(), testDeployment, "q")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNetwork))
}

// ==========================
// Elasticsearch
// ==========================

func TestElasticsearchRetriever_Retrieve(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hits":{"max_score":4.0,"hits":[
			{"_score":4.0,"_source":{"text":"Foot and mouth disease is viral.","title":"Viral Diseases","source_uri":"https://example.org/fmd"}},
			{"_score":2.0,"_source":{"content":"Mastitis affects the udder.","title":"Udder Health"}}
		]}}`)
	}))
	defer server.Close()

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	payload, err := NewElasticsearchRetriever(es, "rag_chunks", 5).Retrieve(context.Background(), testDeployment, "viral diseases")
	require.NoError(t, err)

	assert.Equal(t, "/rag_chunks/_search", gotPath)
	assert.Equal(t, float64(5), gotBody["size"])

	contexts := payload["contexts"].([]interface{})
	require.Len(t, contexts, 2)
	first := contexts[0].(map[string]interface{})
	assert.Equal(t, 1.0, first["score"])
	assert.Equal(t, "https://example.org/fmd", first["sourceUri"])
	second := contexts[1].(map[string]interface{})
	assert.Equal(t, 0.5, second["score"])
	assert.Equal(t, "Mastitis affects the udder.", second["text"])
}

func TestElasticsearchRetriever_MissingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"index_not_found_exception"}}`)
	}))
	defer server.Close()

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	_, err = NewElasticsearchRetriever(es, "missing", 5).Retrieve(context.Background(), testDeployment, "q")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRetrievalNotFound))
}

// ==========================
// Postgres
// ==========================

func TestPostgresRetriever_Retrieve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"content", "title", "source_uri", "rank"}).
		AddRow("Blackleg is a clostridial disease.", "Clostridial Diseases", "https://example.org/blackleg", 0.6).
		AddRow("Vaccinate calves early.", nil, nil, 0.3)
	mock.ExpectQuery(`SELECT content, title, source_uri, ts_rank`).
		WithArgs("blackleg", testDeployment.CorpusID, 10).
		WillReturnRows(rows)

	payload, err := NewPostgresRetriever(db, 10).Retrieve(context.Background(), testDeployment, "blackleg")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	contexts := payload["contexts"].([]interface{})
	require.Len(t, contexts, 2)
	assert.Equal(t, 1.0, contexts[0].(map[string]interface{})["score"])
	assert.Equal(t, 0.5, contexts[1].(map[string]interface{})["score"])
	assert.Equal(t, "", contexts[1].(map[string]interface{})["title"])
}

func TestPostgresRetriever_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT content`).WillReturnError(errors.New("relation \"rag_chunks\" does not exist"))

	_, err = NewPostgresRetriever(db, 10).Retrieve(context.Background(), testDeployment, "q")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRetrievalFailed))
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
}

// ==========================
// Corpus + cache
// ==========================

type countingRetriever struct {
	calls   int32
	payload map[string]interface{}
	err     error
}

func (c *countingRetriever) Name() string { return "fake" }

func (c *countingRetriever) Retrieve(context.Context, config.Deployment, string) (map[string]interface{}, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.payload, c.err
}

func twoChunkPayload() map[string]interface{} {
	return map[string]interface{}{
		"contexts": []interface{}{
			map[string]interface{}{"text": "Anthrax causes sudden death.", "title": "Bacterial", "score": 0.8},
			map[string]interface{}{"text": "Rinderpest was eradicated.", "title": "Viral", "score": 0.4},
		},
	}
}

func TestCorpus_CachesPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	redis := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer redis.Close()

	log := createTestLogger(t)
	retriever := &countingRetriever{payload: twoChunkPayload()}
	corpus := NewCorpus(retriever, NewContextCache(redis, time.Hour, log), log)

	first, err := corpus.Query(context.Background(), testDeployment, "cattle diseases")
	require.NoError(t, err)
	second, err := corpus.Query(context.Background(), testDeployment, "cattle diseases")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&retriever.calls))
	assert.Equal(t, first.Texts(), second.Texts())
	assert.Equal(t, []float64{0.8, 0.4}, second.Scores)
	assert.True(t, mr.Exists(ContextsKey(testDeployment, "cattle diseases")))
}

func TestCorpus_EmptyResultNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	redis := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer redis.Close()

	log := createTestLogger(t)
	corpus := NewCorpus(&countingRetriever{payload: map[string]interface{}{"contexts": []interface{}{}}}, NewContextCache(redis, time.Hour, log), log)

	res, err := corpus.Query(context.Background(), testDeployment, "q")
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Empty(t, mr.Keys())
}

func TestCorpus_CacheDownStillRetrieves(t *testing.T) {
	mr := miniredis.RunT(t)
	redis := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer redis.Close()
	mr.Close()

	log := createTestLogger(t)
	retriever := &countingRetriever{payload: twoChunkPayload()}
	res, err := NewCorpus(retriever, NewContextCache(redis, time.Hour, log), log).
		Query(context.Background(), testDeployment, "q")

	require.NoError(t, err)
	assert.Len(t, res.Chunks, 2)
}

func TestContextsKey(t *testing.T) {
	a := ContextsKey(testDeployment, "q")
	assert.Regexp(t, `^rag:contexts:[0-9a-f]{64}$`, a)
	assert.NotEqual(t, a, ContextsKey(testDeployment, "q2"))
}

// ==========================
// Handler
// ==========================

type staticResolver struct {
	d   *config.Deployment
	err error
}

func (s staticResolver) Resolve() (*config.Deployment, error) { return s.d, s.err }

func TestHandler_Execute(t *testing.T) {
	d := testDeployment
	log := createTestLogger(t)

	tests := []struct {
		name      string
		retriever *countingRetriever
		resolver  DeploymentResolver
		input     Input
		wantCode  apperrors.ErrorCode
	}{
		{name: "success", retriever: &countingRetriever{payload: twoChunkPayload()}, resolver: staticResolver{d: &d}, input: Input{QueryText: "cattle"}},
		{name: "question alias", retriever: &countingRetriever{payload: twoChunkPayload()}, resolver: staticResolver{d: &d}, input: Input{Question: "cattle"}},
		{name: "empty query", retriever: &countingRetriever{}, resolver: staticResolver{d: &d}, input: Input{QueryText: "  "}, wantCode: apperrors.ErrCodeValidation},
		{name: "missing config", retriever: &countingRetriever{}, resolver: staticResolver{err: apperrors.NewConfigurationError("RAG_ENGINE_LOCATION")}, input: Input{QueryText: "q"}, wantCode: apperrors.ErrCodeConfiguration},
		{name: "backend error", retriever: &countingRetriever{err: apperrors.NewRetrievalError(404, "")}, resolver: staticResolver{d: &d}, input: Input{QueryText: "q"}, wantCode: apperrors.ErrCodeRetrievalNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), NewCorpus(tt.retriever, nil, log), tt.resolver, log)

			out, err := h.Execute(context.Background(), &tt.input)
			if tt.wantCode != "" {
				assert.True(t, apperrors.HasCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"Anthrax causes sudden death.", "Rinderpest was eradicated."}, out.Contexts)
			assert.Equal(t, []float64{0.8, 0.4}, out.Scores)
			assert.Equal(t, "Bacterial", out.Chunks[0].Title)
		})
	}
}

func TestNewRetriever(t *testing.T) {
	cfg := createTestConfig()

	r, err := NewRetriever(cfg, Backends{})
	require.NoError(t, err)
	assert.Equal(t, BackendVertex, r.Name())

	cfg.Backend = BackendPostgres
	_, err = NewRetriever(cfg, Backends{})
	assert.Error(t, err)

	cfg.Backend = "pinecone"
	_, err = NewRetriever(cfg, Backends{})
	assert.Error(t, err)
}
