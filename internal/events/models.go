package events

import (
	"strings"
	"time"
)

// RawRow is one tokenized CSV line keyed by its original header names.
// Header casing is preserved; lookups through Has and Get ignore case.
type RawRow map[string]string

// Has reports whether the row carries a column with the given name.
func (r RawRow) Has(col string) bool {
	_, ok := r.lookup(col)
	return ok
}

// Get returns the trimmed value of a column, or "" when absent.
func (r RawRow) Get(col string) string {
	v, _ := r.lookup(col)
	return strings.TrimSpace(v)
}

func (r RawRow) lookup(col string) (string, bool) {
	if col == "" {
		return "", false
	}
	if v, ok := r[col]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, col) {
			return v, true
		}
	}
	return "", false
}

// HasColumn reports whether any row carries the column.
func HasColumn(rows []RawRow, col string) bool {
	for _, row := range rows {
		if row.Has(col) {
			return true
		}
	}
	return false
}

// ColumnMapping maps each recognized semantic field to the header chosen for it.
// An empty string means the field is not mapped.
type ColumnMapping struct {
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty" form:"timestamp"`
	UserID    string `json:"userid,omitempty" yaml:"userid,omitempty" form:"userid"`
	EventName string `json:"eventname,omitempty" yaml:"eventname,omitempty" form:"eventname"`
	SessionID string `json:"sessionid,omitempty" yaml:"sessionid,omitempty" form:"sessionid"`
	Platform  string `json:"platform,omitempty" yaml:"platform,omitempty" form:"platform"`
	Channel   string `json:"channel,omitempty" yaml:"channel,omitempty" form:"channel"`
}

// Complete reports whether timestamp, user and event name are all mapped.
func (m ColumnMapping) Complete() bool {
	return m.Timestamp != "" && m.UserID != "" && m.EventName != ""
}

// Missing returns the names of required fields that are not mapped.
func (m ColumnMapping) Missing() []string {
	var missing []string
	if m.Timestamp == "" {
		missing = append(missing, FieldTimestamp)
	}
	if m.UserID == "" {
		missing = append(missing, FieldUserID)
	}
	if m.EventName == "" {
		missing = append(missing, FieldEventName)
	}
	return missing
}

// Merge fills the fields left empty in m with the values from fallback.
func (m ColumnMapping) Merge(fallback ColumnMapping) ColumnMapping {
	if m.Timestamp == "" {
		m.Timestamp = fallback.Timestamp
	}
	if m.UserID == "" {
		m.UserID = fallback.UserID
	}
	if m.EventName == "" {
		m.EventName = fallback.EventName
	}
	if m.SessionID == "" {
		m.SessionID = fallback.SessionID
	}
	if m.Platform == "" {
		m.Platform = fallback.Platform
	}
	if m.Channel == "" {
		m.Channel = fallback.Channel
	}
	return m
}

// ProcessedEvent is a validated, typed event.
type ProcessedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	EventName string    `json:"event_name"`
	SessionID string    `json:"session_id,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	Channel   string    `json:"channel,omitempty"`
}

// DatasetType classifies the event vocabulary of a dataset.
type DatasetType string

const (
	DatasetUnknown      DatasetType = ""
	DatasetEcommerce    DatasetType = "ecommerce"
	DatasetSubscription DatasetType = "subscription"
)

func (d DatasetType) String() string {
	if d == DatasetUnknown {
		return "unknown"
	}
	return string(d)
}

// MarshalJSON encodes an undetermined type as null.
func (d DatasetType) MarshalJSON() ([]byte, error) {
	if d == DatasetUnknown {
		return []byte("null"), nil
	}
	return []byte(`"` + string(d) + `"`), nil
}

// MarshalYAML encodes an undetermined type as null.
func (d DatasetType) MarshalYAML() (any, error) {
	if d == DatasetUnknown {
		return nil, nil
	}
	return string(d), nil
}
