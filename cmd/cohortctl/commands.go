package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"cohortly/internal/analysis"
	"cohortly/internal/csvinput"
	"cohortly/internal/events"
	"cohortly/internal/metrics"
	"cohortly/internal/pkg/async"
	"cohortly/internal/seeder"
	"cohortly/internal/timeframe"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// write encodes v in the requested format.
func write(env *Env, format string, v any) error {
	switch format {
	case FormatJSON, "":
		var data []byte
		var err error
		if env.Pretty {
			data, err = json.MarshalIndent(v, "", "  ")
		} else {
			data, err = json.Marshal(v)
		}
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(env.Stdout, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(env.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AnalyzeCommand runs the full analysis over one or more CSV files
type AnalyzeCommand struct{}

func (c *AnalyzeCommand) Name() string { return "analyze" }
func (c *AnalyzeCommand) Description() string {
	return "Analyzes CSV event logs: analyze [--format json|yaml] [--steps a,b] [--strict] [--cohort-event e] [--active-events a,b] [--from d] [--to d] [--tz z] [--exclude p] file..."
}

// FileResult is one entry of a multi-file run.
type FileResult struct {
	File   string           `json:"file" yaml:"file"`
	Report *analysis.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func (c *AnalyzeCommand) Execute(ctx context.Context, env *Env, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", FormatJSON, "output format: json or yaml")
	steps := fs.String("steps", "", "comma-separated funnel steps (exact names)")
	strict := fs.Bool("strict", false, "require funnel steps in order")
	cohortEvent := fs.String("cohort-event", "", "event that starts a retention cohort")
	activeEvents := fs.String("active-events", "", "comma-separated events that count as active")
	from := fs.String("from", "", "first day to include (YYYY-MM-DD)")
	to := fs.String("to", "", "last day to include (YYYY-MM-DD)")
	tz := fs.String("tz", "", "timezone for --from/--to")
	exclude := fs.String("exclude", env.Config.ExcludeEventPattern, "exclude events matching this pattern")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return errors.New("usage: analyze [flags] file...")
	}

	opts := analysis.Options{
		FunnelSteps:         splitList(*steps),
		StrictOrder:         *strict,
		CohortEvent:         *cohortEvent,
		ActiveEvents:        splitList(*activeEvents),
		ExcludeEventPattern: *exclude,
	}
	if *from != "" || *to != "" {
		window, err := timeframe.ParseTimeFrame(timeframe.TimeFrameParserParams{FromDate: *from, ToDate: *to, Tz: *tz})
		if err != nil {
			return err
		}
		opts.Window = window
	}

	if len(files) == 1 {
		report, err := analyzeFile(env.Logger, files[0], opts)
		if err != nil {
			return err
		}
		return write(env, *format, report)
	}

	tasks := make([]async.Task[*analysis.Report], len(files))
	for i, file := range files {
		file := file
		tasks[i] = async.Task[*analysis.Report]{
			Name: file,
			Execute: func(ctx context.Context) (*analysis.Report, error) {
				return analyzeFile(env.Logger, file, opts)
			},
		}
	}
	results := async.NewPool[*analysis.Report](env.Config.Workers).Execute(ctx, tasks)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	out := make([]FileResult, 0, len(files))
	for _, file := range files {
		res, ok := results[file]
		entry := FileResult{File: file, Report: res.Data}
		if !ok {
			entry.Error = "not analyzed"
		} else if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		out = append(out, entry)
	}
	return write(env, *format, out)
}

func analyzeFile(logger *slog.Logger, path string, opts analysis.Options) (*analysis.Report, error) {
	start := time.Now()
	table, err := csvinput.ReadFile(path)
	if err != nil {
		metrics.ObserveAnalysis(metrics.Run{Source: "cli", Err: err}, time.Since(start))
		return nil, err
	}

	report, err := analysis.Analyze(table.Headers, table.Rows, opts)
	if err != nil {
		metrics.ObserveAnalysis(metrics.Run{Source: "cli", Err: err}, time.Since(start))
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	keys := make([]string, len(report.Insights))
	for i, in := range report.Insights {
		keys[i] = in.Key
	}
	metrics.ObserveAnalysis(metrics.Run{
		Source:      "cli",
		DatasetType: report.DatasetType.String(),
		ValidRows:   report.Quality.ValidRows,
		FailedRows:  report.Quality.FailedRows,
		InsightKeys: keys,
	}, time.Since(start))

	logger.Info("Analyzed file",
		slog.String("file", path),
		slog.String("datasetType", report.DatasetType.String()),
		slog.Int("rows", report.Quality.TotalRows),
		slog.Duration("elapsed", time.Since(start)))
	return report, nil
}

// DetectCommand prints the detected column mapping and dataset type
type DetectCommand struct{}

func (c *DetectCommand) Name() string { return "detect" }
func (c *DetectCommand) Description() string {
	return "Detects columns and dataset type: detect [--format json|yaml] file"
}

// Detection is the output of the detect command.
type Detection struct {
	Headers     []string             `json:"headers" yaml:"headers"`
	Mapping     events.ColumnMapping `json:"mapping" yaml:"mapping"`
	Missing     []string             `json:"missing" yaml:"missing"`
	DatasetType events.DatasetType   `json:"dataset_type" yaml:"dataset_type"`
}

func (c *DetectCommand) Execute(ctx context.Context, env *Env, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", FormatJSON, "output format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: detect [--format json|yaml] file")
	}

	table, err := csvinput.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	mapping := events.AutoDetectColumns(table.Headers)
	detection := Detection{
		Headers: table.Headers,
		Mapping: mapping,
		Missing: mapping.Missing(),
	}
	if detection.Missing == nil {
		detection.Missing = []string{}
	}
	if mapping.Complete() {
		detection.DatasetType = events.DetectDatasetType(events.ProcessData(table.Rows, mapping))
	}
	return write(env, *format, detection)
}

// QualityCommand prints the data quality report
type QualityCommand struct{}

func (c *QualityCommand) Name() string { return "quality" }
func (c *QualityCommand) Description() string {
	return "Reports row validity, users, date range and top events: quality [--format json|yaml] file"
}

func (c *QualityCommand) Execute(ctx context.Context, env *Env, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", FormatJSON, "output format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: quality [--format json|yaml] file")
	}

	table, err := csvinput.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	mapping, err := analysis.ResolveMapping(table.Headers, events.ColumnMapping{})
	if err != nil {
		return err
	}
	processed := events.ProcessData(table.Rows, mapping)
	return write(env, *format, events.GenerateDataQualityReport(table.Rows, processed))
}

// SeedCommand writes a synthetic dataset as CSV
type SeedCommand struct{}

func (c *SeedCommand) Name() string { return "seed" }
func (c *SeedCommand) Description() string {
	return "Generates a synthetic CSV dataset: seed [--kind ecommerce|subscription] [--users n] [--seed s] [--out file]"
}

func (c *SeedCommand) Execute(ctx context.Context, env *Env, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	kind := fs.String("kind", string(seeder.KindEcommerce), "dataset kind: ecommerce or subscription")
	users := fs.Int("users", 500, "number of users to generate")
	seed := fs.Uint64("seed", 1, "random seed")
	out := fs.String("out", "", "output file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	se := seeder.NewSeeder(env.Logger, seeder.Options{
		Kind:  seeder.Kind(*kind),
		Users: *users,
		Seed:  *seed,
	})

	if *out == "" {
		return se.WriteCSV(ctx, env.Stdout)
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *out, err)
	}
	if err := se.WriteCSV(ctx, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, env *Env, args []string) error {
	showUsage(env.Stdout)
	return nil
}
