package v1

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"cohortly/internal/analysis"
	"cohortly/internal/events"
	"cohortly/internal/timeframe"
)

// ColumnsRequest asks for the column mapping of a header line.
type ColumnsRequest struct {
	Headers []string `json:"headers" validate:"required,min=1,dive,required"`
}

// AnalyzeRequest carries a tokenized table and run options. Uploads fill
// Headers and Rows from the CSV file.
type AnalyzeRequest struct {
	Headers      []string             `json:"headers" validate:"required,min=1,dive,required"`
	Rows         []events.RawRow      `json:"rows"`
	Mapping      events.ColumnMapping `json:"mapping"`
	FunnelSteps  []string             `json:"funnel_steps" validate:"omitempty,min=2,dive,required"`
	StrictOrder  bool                 `json:"strict_order"`
	CohortEvent  string               `json:"cohort_event" validate:"omitempty,max=200"`
	ActiveEvents []string             `json:"active_events" validate:"omitempty,dive,required"`
	From         string               `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To           string               `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Tz           string               `json:"tz" validate:"omitempty,timezone"`
}

// Options converts the request into analysis options.
func (r *AnalyzeRequest) Options(excludePattern string) (analysis.Options, error) {
	opts := analysis.Options{
		Mapping:             r.Mapping,
		FunnelSteps:         r.FunnelSteps,
		StrictOrder:         r.StrictOrder,
		CohortEvent:         strings.TrimSpace(r.CohortEvent),
		ActiveEvents:        r.ActiveEvents,
		ExcludeEventPattern: excludePattern,
	}
	if r.From != "" || r.To != "" {
		window, err := timeframe.ParseTimeFrame(timeframe.TimeFrameParserParams{
			FromDate: r.From,
			ToDate:   r.To,
			Tz:       r.Tz,
		})
		if err != nil {
			return opts, err
		}
		opts.Window = window
	}
	return opts, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct returns a single readable error listing every failed field.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			messages = append(messages, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}

// splitList parses a comma-separated form value.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
