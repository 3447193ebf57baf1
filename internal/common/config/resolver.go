// internal/common/config/resolver.go
package config

import (
	"fmt"
	"strings"
	"sync"

	apperrors "rag-answer-service/internal/common/errors"
)

// Deployment identifies the corpus a request is answered from.
type Deployment struct {
	ProjectID string `json:"projectId"`
	Location  string `json:"location"`
	CorpusID  string `json:"corpusId"`
	APIKey    string `json:"-"`
}

// CorpusName returns the fully qualified RAG corpus resource name.
func (d Deployment) CorpusName() string {
	return fmt.Sprintf("projects/%s/locations/%s/ragCorpora/%s", d.ProjectID, d.Location, d.CorpusID)
}

// Resolver merges direct settings with the legacy nested config. Direct values win.
// A successful resolution is memoized since the values are deployment-static.
type Resolver struct {
	direct    RAGConfig
	directKey string
	legacy    LegacyConfig

	mu     sync.Mutex
	cached *Deployment
}

func NewResolver(cfg *Config) *Resolver {
	return &Resolver{
		direct:    cfg.RAG,
		directKey: cfg.Synthesis.APIKey,
		legacy:    cfg.Legacy,
	}
}

// Resolve returns the deployment or a CONFIGURATION_ERROR naming the first missing field.
func (r *Resolver) Resolve() (*Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		d := *r.cached
		return &d, nil
	}

	d := Deployment{
		ProjectID: firstNonEmpty(r.direct.ProjectID, r.legacy.RAG.EngineProjectID),
		Location:  firstNonEmpty(r.direct.Location, r.legacy.RAG.EngineLocation),
		CorpusID:  firstNonEmpty(r.direct.CorpusID, r.legacy.RAG.EngineID),
		APIKey:    firstNonEmpty(r.directKey, r.legacy.Gemini.APIKey),
	}

	switch {
	case d.ProjectID == "":
		return nil, apperrors.NewConfigurationError("RAG_ENGINE_PROJECT_ID")
	case d.Location == "":
		return nil, apperrors.NewConfigurationError("RAG_ENGINE_LOCATION")
	case d.CorpusID == "":
		return nil, apperrors.NewConfigurationError("RAG_ENGINE_ID")
	}

	r.cached = &d
	out := d
	return &out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
