package flow

import "context"

type (
	GenerateRequest struct {
		Flow        string
		Prompt      string
		Schema      *Schema
		Temperature *float32 // nil: generator default
	}

	// Generator calls the text-generation service and returns the raw JSON text of the structured response.
	Generator interface {
		Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
	}

	// GeneratorFunc adapts a function to the Generator interface.
	GeneratorFunc func(ctx context.Context, req GenerateRequest) ([]byte, error)
)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	return f(ctx, req)
}
