package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-answer-service/internal/common/config"
)

type payload struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.SetJSON(ctx, "k", payload{Text: "anthrax", Score: 0.9}, time.Minute))

	var got payload
	require.NoError(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, payload{Text: "anthrax", Score: 0.9}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.GetJSON(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisClient_GetJSONDecodeError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisFromClient(db)

	mock.ExpectGet("k").SetVal("not json")

	var got payload
	err := c.GetJSON(context.Background(), "k", &got)
	assert.ErrorContains(t, err, "decode cached k")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElasticsearch_URLFallback(t *testing.T) {
	c, err := NewElasticsearch(config.ElasticsearchConfig{URL: "http://localhost:9200", Index: "rag_chunks"})
	require.NoError(t, err)
	assert.Equal(t, "rag_chunks", c.Index)
}

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	c := &PostgresClient{DB: db}

	mock.ExpectPing()
	mock.ExpectClose()

	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
