// Package assets bundles the files the binaries need at runtime.
package assets

import "embed"

var (
	//go:embed migrations/*.sql
	Migrations embed.FS

	//go:embed templates/email/*
	EmailTemplates embed.FS

	//go:embed prompts.yaml
	Prompts []byte
)

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
