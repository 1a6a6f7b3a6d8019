// Package llmsvc implements flow.Generator on top of the Gemini API.
package llmsvc

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/flow"
)

var ErrNotConfigured = errors.New("language model is not configured")

// Gemini generates structured JSON output with a response schema.
type Gemini struct {
	models      *genai.Models
	model       string
	temperature float32
	logger      core.Logger
}

var _ flow.Generator = (*Gemini)(nil)

func NewGemini(ctx context.Context, conf *core.Config, logger core.Logger) (*Gemini, error) {
	if conf.LLM.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.LLM.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	return &Gemini{
		models:      client.Models,
		model:       conf.LLM.Model,
		temperature: conf.LLM.Temperature,
		logger:      logger,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, req flow.GenerateRequest) ([]byte, error) {
	temp := g.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temp),
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(req.Schema),
	}

	g.logger.Debug("generating content", map[string]interface{}{"flow": req.Flow, "model": g.model})
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "generating %s", req.Flow)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.Errorf("empty response for %s", req.Flow)
	}
	return []byte(text), nil
}

// toGenaiSchema converts a flow schema to the SDK's OpenAPI subset.
func toGenaiSchema(s *flow.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Format:      s.Format,
		Enum:        s.Enum,
		Required:    s.Required,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		MinItems:    s.MinItems,
		MaxItems:    s.MaxItems,
		Items:       toGenaiSchema(s.Items),
	}
	if s.Format == "uri" {
		out.Format = "" // the API only accepts enum and date-time string formats
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
		out.PropertyOrdering = s.Ordering
	}
	return out
}

func genaiType(t flow.SchemaType) genai.Type {
	switch t {
	case flow.TypeObject:
		return genai.TypeObject
	case flow.TypeArray:
		return genai.TypeArray
	case flow.TypeInteger:
		return genai.TypeInteger
	case flow.TypeNumber:
		return genai.TypeNumber
	case flow.TypeBoolean:
		return genai.TypeBoolean
	}
	return genai.TypeString
}

// Unconfigured is the generator used when no API key is set: every flow fails.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, flow.GenerateRequest) ([]byte, error) {
	return nil, ErrNotConfigured
}
