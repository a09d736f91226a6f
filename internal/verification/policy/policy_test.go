package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"enrollgate/internal/lookup"
	"enrollgate/internal/verification/crosscheck"
	"enrollgate/internal/verification/models"
)

func TestNewDefaultsThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, New(0).Threshold())
	assert.Equal(t, DefaultThreshold, New(-5).Threshold())
	assert.Equal(t, 90, New(90).Threshold())
}

func TestConfigDecisions(t *testing.T) {
	p := New(0)

	d := p.NoConfig()
	assert.Equal(t, models.OutcomeManualEntry, d.Outcome)
	assert.Equal(t, models.ReasonConfigMissing, d.Reason)

	d = p.InactiveConfig()
	assert.Equal(t, models.OutcomeManualEntry, d.Outcome)
	assert.Equal(t, models.ReasonConfigInactive, d.Reason)
}

func TestLookupFailedMapsEveryKind(t *testing.T) {
	p := New(0)
	tests := []struct {
		kind   lookup.Kind
		reason models.Reason
	}{
		{lookup.KindTimeout, models.ReasonTimeout},
		{lookup.KindAuthRejected, models.ReasonAuthRejected},
		{lookup.KindNotFound, models.ReasonNotFound},
		{lookup.KindMalformedResponse, models.ReasonMalformedResponse},
		{lookup.KindNetworkError, models.ReasonNetworkError},
		{lookup.Kind("something-new"), models.ReasonNetworkError},
	}
	for _, tc := range tests {
		d := p.LookupFailed(tc.kind)
		assert.Equal(t, models.OutcomeManualEntry, d.Outcome, "kind %s", tc.kind)
		assert.Equal(t, tc.reason, d.Reason, "kind %s", tc.kind)
	}
}

func TestEvaluate(t *testing.T) {
	p := New(70)

	t.Run("score at threshold verifies", func(t *testing.T) {
		d := p.Evaluate(crosscheck.Result{Score: 70})
		assert.Equal(t, models.OutcomeVerified, d.Outcome)
		assert.Equal(t, models.ReasonNone, d.Reason)
	})

	t.Run("score below threshold queues review", func(t *testing.T) {
		d := p.Evaluate(crosscheck.Result{Score: 69})
		assert.Equal(t, models.OutcomeManualReview, d.Outcome)
		assert.Equal(t, models.ReasonScoreBelowThreshold, d.Reason)
	})

	t.Run("national id mismatch overrides a perfect score", func(t *testing.T) {
		d := p.Evaluate(crosscheck.Result{Score: 100, NationalIDMismatch: true})
		assert.Equal(t, models.OutcomeManualReview, d.Outcome)
		assert.Equal(t, models.ReasonIdentityMismatch, d.Reason)
	})
}
