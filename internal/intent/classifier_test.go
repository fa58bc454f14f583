package intent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

func sessionIn(state domain.SessionState) *domain.Session {
	return &domain.Session{UserID: "u1", State: state}
}

func TestClassify_IdleMessages(t *testing.T) {
	c := NewKeywordClassifier(0.5)

	cases := []struct {
		name string
		text string
		want domain.Intent
	}{
		{"agreement question", "What is the penalty for breaking the lease early?", domain.IntentAskAgreementQuestion},
		{"maintenance report", "The kitchen sink is leaking.", domain.IntentRaiseTicket},
		{"status lookup", "status #MAINT-000123", domain.IntentTicketStatus},
		{"bare confirm", "confirm", domain.IntentConfirm},
		{"bare cancel", "cancel", domain.IntentCancel},
		{"gibberish", "blue banana sandwich", domain.IntentUnknown},
		{"empty", "   ", domain.IntentUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.text, sessionIn(domain.SessionStateIdle))
			require.Equal(t, tc.want, got.Intent)
		})
	}
}

func TestClassify_MidDialoguePriors(t *testing.T) {
	c := NewKeywordClassifier(0.5)

	got := c.Classify("yes", sessionIn(domain.SessionStateAwaitingConfirm))
	require.Equal(t, domain.IntentConfirm, got.Intent)

	got = c.Classify("never mind", sessionIn(domain.SessionStateAwaitingConfirm))
	require.Equal(t, domain.IntentCancel, got.Intent)

	// Free text mid-collection is a detail answer, not a new question.
	got = c.Classify("it's the bathroom faucet", sessionIn(domain.SessionStateAwaitingDetails))
	require.Equal(t, domain.IntentProvideTicketDetail, got.Intent)

	// But an explicit confirm still wins over the detail prior.
	got = c.Classify("confirm", sessionIn(domain.SessionStateAwaitingDetails))
	require.Equal(t, domain.IntentConfirm, got.Intent)
}

func TestClassify_PunctuatedConfirmAndCancel(t *testing.T) {
	c := NewKeywordClassifier(0.5)

	for _, text := range []string{"yes.", "Confirm!", "ok, go ahead."} {
		got := c.Classify(text, sessionIn(domain.SessionStateAwaitingConfirm))
		require.Equal(t, domain.IntentConfirm, got.Intent, text)
	}
	for _, text := range []string{"cancel.", "no!", "never mind."} {
		got := c.Classify(text, sessionIn(domain.SessionStateAwaitingConfirm))
		require.Equal(t, domain.IntentCancel, got.Intent, text)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewKeywordClassifier(0.5)
	sess := sessionIn(domain.SessionStateIdle)

	first := c.Classify("Is the deposit refundable?", sess)
	second := c.Classify("Is the deposit refundable?", sess)
	require.Equal(t, first, second)
	require.Equal(t, domain.IntentAskAgreementQuestion, first.Intent)
}

func TestClassify_BelowThresholdIsUnknown(t *testing.T) {
	// Single weak keyword hit scores 0.6; a higher threshold rejects it.
	c := NewKeywordClassifier(0.7)
	got := c.Classify("something about a guest", sessionIn(domain.SessionStateIdle))
	require.Equal(t, domain.IntentUnknown, got.Intent)
	require.Less(t, got.Confidence, 0.7)
}

func TestParseTicketRef(t *testing.T) {
	ref, ok := ParseTicketRef("Status #maint-42 please")
	require.True(t, ok)
	require.Equal(t, "MAINT-42", ref)

	_, ok = ParseTicketRef("what's the status of my request")
	require.False(t, ok)
}

func TestCategory_KeywordMap(t *testing.T) {
	c := NewKeywordCategoryClassifier()

	cases := []struct {
		text    string
		want    domain.TicketCategory
		matched bool
	}{
		{"the kitchen sink is leaking", domain.CategoryPlumbing, true},
		{"the outlet near the bed is sparking", domain.CategoryElectrical, true},
		{"the heating stopped working overnight", domain.CategoryHVAC, true},
		{"my fridge is making a loud noise", domain.CategoryAppliance, true},
		{"there is a crack in the ceiling", domain.CategoryStructural, true},
		{"I saw a cockroach in the bathroom", domain.CategoryPest, true},
		{"the deadbolt is stuck", domain.CategoryLocksmith, true},
		{"mold on the bathroom tiles", domain.CategoryCleaning, true},
		{"something is wrong", domain.CategoryOther, false},
		// Literal answers to the category prompt must all resolve.
		{"plumbing", domain.CategoryPlumbing, true},
		{"electrical", domain.CategoryElectrical, true},
		{"hvac", domain.CategoryHVAC, true},
		{"an appliance", domain.CategoryAppliance, true},
		{"structural", domain.CategoryStructural, true},
		{"something else", domain.CategoryOther, true},
		{"other", domain.CategoryOther, true},
		{"Other.", domain.CategoryOther, true},
		{"it happened in a different room", domain.CategoryOther, false},
	}
	for _, tc := range cases {
		got, matched := c.Category(tc.text)
		require.Equal(t, tc.matched, matched, tc.text)
		require.Equal(t, tc.want, got, tc.text)
	}
}

func TestDerivePriority(t *testing.T) {
	require.Equal(t, domain.PriorityEmergency, DerivePriority("the pipe burst and water is everywhere"))
	require.Equal(t, domain.PriorityHigh, DerivePriority("there is no hot water"))
	require.Equal(t, domain.PriorityNormal, DerivePriority("the closet door squeaks"))
}
