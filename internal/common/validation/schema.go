// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	apperrors "rag-answer-service/internal/common/errors"
	"rag-answer-service/internal/models"
)

const (
	MinPromptLength = 3
	MaxPromptLength = 2000
)

// RequestSchema describes an ask request after alias resolution. The prompt is
// validated after trimming.
const RequestSchema = `{
	"type": "object",
	"required": ["prompt"],
	"properties": {
		"prompt": {"type": "string", "minLength": 3, "maxLength": 2000},
		"context": {"type": "string"}
	}
}`

// AnswerSchema is the response contract for an Answer.
const AnswerSchema = `{
	"type": "object",
	"required": ["text", "sources", "confidence"],
	"properties": {
		"text": {"type": "string", "minLength": 1},
		"sources": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["uri", "title"],
				"properties": {
					"uri": {"type": "string", "pattern": "^(https?://|data:)"},
					"title": {"type": "string", "minLength": 1}
				}
			}
		},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

type Validator struct {
	request *gojsonschema.Schema
	answer  *gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	request, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(RequestSchema))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	answer, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(AnswerSchema))
	if err != nil {
		return nil, fmt.Errorf("compile answer schema: %w", err)
	}
	return &Validator{request: request, answer: answer}, nil
}

// MustNewValidator panics if the embedded schemas do not compile.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// ValidatePrompt trims the prompt and checks it against RequestSchema. It
// returns the trimmed prompt or a VALIDATION_ERROR with a caller facing message.
func (v *Validator) ValidatePrompt(prompt, context string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	doc := map[string]interface{}{"prompt": trimmed}
	if context != "" {
		doc["context"] = context
	}
	if prompt == "" {
		delete(doc, "prompt")
	}

	result, err := v.request.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if result.Valid() {
		return trimmed, nil
	}

	for _, desc := range result.Errors() {
		switch desc.Type() {
		case "required":
			return "", apperrors.NewValidationError("Prompt is required")
		case "string_gte":
			return "", apperrors.NewValidationError(fmt.Sprintf("Prompt must be at least %d characters", MinPromptLength))
		case "string_lte":
			return "", apperrors.NewValidationError(fmt.Sprintf("Prompt must be at most %d characters (got %d)", MaxPromptLength, utf8.RuneCountInString(trimmed)))
		}
	}
	return "", apperrors.NewValidationError(describe(result))
}

// ValidateAnswer checks an assembled answer against AnswerSchema.
func (v *Validator) ValidateAnswer(a models.Answer) error {
	sources := a.Sources
	if sources == nil {
		sources = []models.Source{}
	}
	doc := map[string]interface{}{
		"text":       a.Text,
		"confidence": a.Confidence,
	}
	items := make([]interface{}, len(sources))
	for i, s := range sources {
		items[i] = map[string]interface{}{"uri": s.URI, "title": s.Title}
	}
	doc["sources"] = items

	result, err := v.answer.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !result.Valid() {
		return apperrors.NewAnswerSchemaInvalidError(describe(result))
	}
	return nil
}

func describe(result *gojsonschema.Result) string {
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return strings.Join(errs, "; ")
}
