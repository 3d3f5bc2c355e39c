package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cohortly/internal/events"
	"cohortly/internal/testsupport"
)

func TestDetectDatasetType(t *testing.T) {
	base := testsupport.EcommerceBase

	testCases := []struct {
		name     string
		names    []string
		expected events.DatasetType
	}{
		{name: "empty", names: nil, expected: events.DatasetUnknown},
		{name: "ecommerce", names: testsupport.EcommerceSteps, expected: events.DatasetEcommerce},
		{name: "subscription", names: testsupport.SubscriptionSteps, expected: events.DatasetSubscription},
		{name: "unrecognized vocabulary", names: []string{"custom_alpha", "custom_beta"}, expected: events.DatasetUnknown},
		{name: "single coincidental match", names: []string{"renew", "custom_alpha"}, expected: events.DatasetUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var evts []events.ProcessedEvent
			for i, name := range tc.names {
				evts = append(evts, testsupport.Event("u1", name, base, 0, i))
			}
			assert.Equal(t, tc.expected, events.DetectDatasetType(evts))
		})
	}

	t.Run("fixtures", func(t *testing.T) {
		assert.Equal(t, events.DatasetEcommerce, events.DetectDatasetType(testsupport.EcommerceFixture().Events()))
		assert.Equal(t, events.DatasetSubscription, events.DetectDatasetType(testsupport.SubscriptionFixture().Events()))
	})
}

func TestDatasetTypeJSON(t *testing.T) {
	b, err := events.DatasetUnknown.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = events.DatasetSubscription.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"subscription"`, string(b))
}
