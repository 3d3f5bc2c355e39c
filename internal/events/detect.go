package events

import (
	"cohortly/internal/pkg/vocabulary"
)

// minDatasetScore keeps a single coincidental match from classifying a dataset.
const minDatasetScore = 2

// DetectDatasetType scores the distinct event names against the e-commerce
// and subscription vocabularies. Each (event, pattern) pair that fuzzy-matches
// adds one point. A kind wins only with a strictly higher score of at least 2.
func DetectDatasetType(evts []ProcessedEvent) DatasetType {
	if len(evts) == 0 {
		return DatasetUnknown
	}

	names := make(map[string]struct{})
	for _, e := range evts {
		names[NormalizeEventName(e.EventName)] = struct{}{}
	}

	vocab := vocabulary.Datasets()
	ecommerceScore, subscriptionScore := 0, 0
	for name := range names {
		ecommerceScore += countMatches(name, vocab.Ecommerce)
		subscriptionScore += countMatches(name, vocab.Subscription)
	}

	switch {
	case ecommerceScore > subscriptionScore && ecommerceScore >= minDatasetScore:
		return DatasetEcommerce
	case subscriptionScore > ecommerceScore && subscriptionScore >= minDatasetScore:
		return DatasetSubscription
	default:
		return DatasetUnknown
	}
}

func countMatches(name string, patterns []string) int {
	n := 0
	for _, pattern := range patterns {
		if FuzzyMatch(name, pattern) {
			n++
		}
	}
	return n
}
