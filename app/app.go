// Package app provides the public API for embedding cohortly.
// It re-exports the analysis entry points and the HTTP application.
package app

import (
	"cohortly/internal"
	"cohortly/internal/analysis"
	"cohortly/internal/config"
	"cohortly/internal/csvinput"
	"cohortly/internal/events"
	"cohortly/internal/insights"
)

// Re-export core types
type (
	Application = internal.Application
	Config      = config.Config
)

// Re-export analysis types
type (
	Options       = analysis.Options
	Report        = analysis.Report
	RawRow        = events.RawRow
	ColumnMapping = events.ColumnMapping
	DatasetType   = events.DatasetType
	Insight       = insights.Insight
	Table         = csvinput.Table
)

// ErrMissingRequiredColumns is returned when timestamp, user or event name cannot be mapped.
var ErrMissingRequiredColumns = analysis.ErrMissingRequiredColumns

// GetConfig returns the application configuration
func GetConfig() *Config {
	return config.GetConfig()
}

// NewApp creates a new application with default routes
func NewApp() (*Application, error) {
	return internal.NewApp()
}

// NewAppWithRoutes creates a new application with custom route mounting
func NewAppWithRoutes(cfg *Config, routeMount func(*Application)) (*Application, error) {
	return internal.NewAppWithRoutes(cfg, routeMount)
}

// MountAppRoutes mounts the default routes, for callers adding their own first.
func MountAppRoutes(a *Application) {
	internal.MountAppRoutes(a)
}

// Analyze runs every engine over a tokenized table.
func Analyze(headers []string, rows []RawRow, opts Options) (*Report, error) {
	return analysis.Analyze(headers, rows, opts)
}

// AutoDetectColumns maps headers to semantic fields.
func AutoDetectColumns(headers []string) ColumnMapping {
	return events.AutoDetectColumns(headers)
}

// ReadCSVFile tokenizes a CSV file.
func ReadCSVFile(path string) (Table, error) {
	return csvinput.ReadFile(path)
}
