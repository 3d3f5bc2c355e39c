// Package vocabulary loads the embedded naming databases used to interpret
// event logs: header candidates per semantic column, dataset vocabularies,
// funnel templates and subscription plan buckets.
package vocabulary

import (
	"embed"
	"log/slog"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Embed the database files
//
//go:embed database/columns.yml
//go:embed database/datasets.yml
//go:embed database/funnels.yml
//go:embed database/plans.yml
var databaseFiles embed.FS

// Template names
const (
	TemplateEcommerce    = "ecommerce"
	TemplateSubscription = "subscription"
	TemplateLifecycle    = "lifecycle"
)

// Plan buckets. PlanOther takes values that match no pattern.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
	PlanOther   = "other"
)

// ColumnEntry lists the header names accepted for one semantic field.
type ColumnEntry struct {
	Field      string   `yaml:"field"`
	Required   bool     `yaml:"required"`
	Candidates []string `yaml:"candidates"`
}

// DatasetVocabulary holds the event names typical of each dataset kind.
type DatasetVocabulary struct {
	Ecommerce    []string `yaml:"ecommerce"`
	Subscription []string `yaml:"subscription"`
}

// PlanEntry maps a regex over plan values to a bucket name.
type PlanEntry struct {
	Bucket string `yaml:"bucket"`
	Regex  string `yaml:"regex"`
}

// Compiled regex cache
type RegexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *RegexCache {
	return &RegexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *RegexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

type database struct {
	columns    []ColumnEntry
	datasets   DatasetVocabulary
	funnels    map[string][]string
	plans      []PlanEntry
	regexCache *RegexCache
}

var (
	db   *database
	once sync.Once
)

func getDatabase() *database {
	once.Do(func() {
		db = &database{
			regexCache: newRegexCache(),
			funnels:    make(map[string][]string),
		}
		logger := slog.Default()

		load := func(name string, out any) {
			data, err := databaseFiles.ReadFile(name)
			if err != nil {
				logger.Error("Failed to read vocabulary file", slog.String("file", name), slog.Any("error", err))
				return
			}
			if err := yaml.Unmarshal(data, out); err != nil {
				logger.Error("Failed to parse vocabulary file", slog.String("file", name), slog.Any("error", err))
			}
		}

		load("database/columns.yml", &db.columns)
		load("database/datasets.yml", &db.datasets)
		load("database/funnels.yml", &db.funnels)
		load("database/plans.yml", &db.plans)
	})
	return db
}

// Columns returns the column candidate table in resolution order.
func Columns() []ColumnEntry {
	src := getDatabase().columns
	out := make([]ColumnEntry, len(src))
	for i, entry := range src {
		out[i] = ColumnEntry{
			Field:      entry.Field,
			Required:   entry.Required,
			Candidates: append([]string(nil), entry.Candidates...),
		}
	}
	return out
}

// Datasets returns the e-commerce and subscription event vocabularies.
func Datasets() DatasetVocabulary {
	src := getDatabase().datasets
	return DatasetVocabulary{
		Ecommerce:    append([]string(nil), src.Ecommerce...),
		Subscription: append([]string(nil), src.Subscription...),
	}
}

// FunnelTemplate returns the built-in step list for a template name, or nil.
func FunnelTemplate(name string) []string {
	steps, ok := getDatabase().funnels[name]
	if !ok {
		return nil
	}
	return append([]string(nil), steps...)
}

// PlanBucket classifies a raw plan value as monthly, yearly or other.
func PlanBucket(plan string) string {
	d := getDatabase()
	for _, entry := range d.plans {
		regex, err := d.regexCache.get(entry.Regex)
		if err != nil {
			continue
		}
		if regex.MatchString(plan) {
			return entry.Bucket
		}
	}
	return PlanOther
}

// Match reports whether s matches the PCRE pattern. Compiled patterns are cached.
func Match(pattern, s string) (bool, error) {
	regex, err := getDatabase().regexCache.get(pattern)
	if err != nil {
		return false, err
	}
	return regex.MatchString(s), nil
}

// Validate compiles the pattern without matching anything.
func Validate(pattern string) error {
	_, err := getDatabase().regexCache.get(pattern)
	return err
}
