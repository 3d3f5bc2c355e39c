package events

import (
	"strings"

	"cohortly/internal/pkg/vocabulary"
)

// AutoDetectColumns resolves a column mapping from a header list.
// For every semantic field the first header (in input order) equal to one of
// the field's candidate names, ignoring case, wins. Unmatched fields stay empty.
func AutoDetectColumns(headers []string) ColumnMapping {
	var mapping ColumnMapping

	for _, entry := range vocabulary.Columns() {
		header := firstMatchingHeader(headers, entry.Candidates)
		if header == "" {
			continue
		}
		switch entry.Field {
		case FieldTimestamp:
			mapping.Timestamp = header
		case FieldUserID:
			mapping.UserID = header
		case FieldEventName:
			mapping.EventName = header
		case FieldSessionID:
			mapping.SessionID = header
		case FieldPlatform:
			mapping.Platform = header
		case FieldChannel:
			mapping.Channel = header
		}
	}

	return mapping
}

func firstMatchingHeader(headers, candidates []string) string {
	for _, header := range headers {
		h := strings.TrimSpace(header)
		for _, candidate := range candidates {
			if strings.EqualFold(h, candidate) {
				return header
			}
		}
	}
	return ""
}
