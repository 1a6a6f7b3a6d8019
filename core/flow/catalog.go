package flow

import (
	"text/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	promptEntry struct {
		Prompt      string   `yaml:"prompt"`
		FailMessage string   `yaml:"fail_message"`
		Temperature *float32 `yaml:"temperature"`
	}

	// Catalog holds the prompt templates of every flow, keyed by flow name.
	Catalog struct {
		appName string
		Flows   map[string]promptEntry `yaml:"flows"`
	}
)

// LoadCatalog parses a YAML prompt catalog.
func LoadCatalog(data []byte, appName string) (*Catalog, error) {
	cat := &Catalog{appName: appName}
	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, errors.Wrap(err, "parsing prompt catalog")
	}
	return cat, nil
}

func (c *Catalog) lookup(name string) (*template.Template, promptEntry, error) {
	entry, ok := c.Flows[name]
	if !ok || entry.Prompt == "" {
		return nil, promptEntry{}, errors.Errorf("prompt %q not found in catalog", name)
	}
	tmpl, err := template.New(name).
		Funcs(template.FuncMap{"app": func() string { return c.appName }}).
		Option("missingkey=error").
		Parse(entry.Prompt)
	if err != nil {
		return nil, promptEntry{}, errors.Wrapf(err, "parsing prompt %q", name)
	}
	if entry.FailMessage == "" {
		entry.FailMessage = "Something went wrong. Please try again."
	}
	return tmpl, entry, nil
}
