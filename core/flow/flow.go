package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core"
)

// ErrFlowFailed is matched (errors.Is) by every failure that happens after the input was accepted.
var ErrFlowFailed = errors.New("flow failed")

// Error is a failed flow run. Message is safe to show to users.
type Error struct {
	Flow    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Flow + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrFlowFailed }

type env struct {
	gen      Generator
	validate *validator.Validate
	logger   core.Logger
}

// Definition is one prompt-and-schema flow turning an In into an Out.
type Definition[In, Out any] struct {
	name        string
	prompt      *template.Template
	failMessage string
	temperature *float32
	schema      *Schema
}

func newDefinition[In, Out any](cat *Catalog, name string) (*Definition[In, Out], error) {
	tmpl, entry, err := cat.lookup(name)
	if err != nil {
		return nil, err
	}
	var out Out
	return &Definition[In, Out]{
		name:        name,
		prompt:      tmpl,
		failMessage: entry.FailMessage,
		temperature: entry.Temperature,
		schema:      SchemaOf(out),
	}, nil
}

func (d *Definition[In, Out]) Name() string { return d.name }

func (d *Definition[In, Out]) Schema() *Schema { return d.schema }

// Render executes the prompt template with in.
func (d *Definition[In, Out]) Render(in In) (string, error) {
	var buf bytes.Buffer
	if err := d.prompt.Execute(&buf, in); err != nil {
		return "", errors.Wrap(err, "rendering prompt")
	}
	return buf.String(), nil
}

// run validates in, calls the generator and returns its validated output unchanged.
// Invalid input is returned as validator.ValidationErrors and never reaches the generator.
func (d *Definition[In, Out]) run(ctx context.Context, e *env, in In) (Out, error) {
	var zero Out

	core.CleanStrings(&in)
	if err := e.validate.Struct(in); err != nil {
		return zero, err
	}

	prompt, err := d.Render(in)
	if err != nil {
		return zero, d.fail(e, err)
	}

	raw, err := e.gen.Generate(ctx, GenerateRequest{
		Flow:        d.name,
		Prompt:      prompt,
		Schema:      d.schema,
		Temperature: d.temperature,
	})
	if err != nil {
		return zero, d.fail(e, errors.Wrap(err, "generating"))
	}

	var out Out
	if err = decodeStrict(raw, &out); err != nil {
		return zero, d.fail(e, errors.Wrap(err, "decoding output"))
	}
	if err = e.validate.Struct(out); err != nil {
		return zero, d.fail(e, errors.Wrap(err, "validating output"))
	}
	return out, nil
}

func (d *Definition[In, Out]) fail(e *env, err error) error {
	ferr := &Error{Flow: d.name, Message: d.failMessage, Err: err}
	e.logger.Error(ferr.Error(), err, map[string]interface{}{"flow": d.name})
	return ferr
}

// decodeStrict decodes a single JSON object into v, rejecting unknown fields and trailing data.
// A surrounding markdown code fence is tolerated.
func decodeStrict(raw []byte, v interface{}) error {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if text == "" {
		return errors.New("empty output")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected data after output object")
	}
	return nil
}
