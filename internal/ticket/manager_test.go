package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tenant-assistant/internal/domain"
	"github.com/spec-kit/tenant-assistant/internal/repository"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

// recordingSink captures submitted tickets; fail makes every Submit error.
type recordingSink struct {
	mu        sync.Mutex
	submitted []domain.Ticket
	fail      bool
}

func (s *recordingSink) Submit(_ context.Context, ticket domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broker unreachable")
	}
	s.submitted = append(s.submitted, ticket)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

func newTestManager(sink *recordingSink) (*Manager, *repository.MemoryTicketRepository) {
	repo := repository.NewMemoryTicketRepository()
	deps := Dependencies{Repo: repo}
	if sink != nil {
		deps.Sink = sink
	}
	return NewManager(deps), repo
}

func TestStartDraft_ConflictsWithExisting(t *testing.T) {
	mgr, _ := newTestManager(nil)

	draft, err := mgr.StartDraft("u1", "sink is leaking", domain.CategoryPlumbing, domain.PriorityHigh)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusDraft, draft.Status)
	require.Empty(t, draft.ID, "draft tickets have no ID until submission")

	_, err = mgr.StartDraft("u1", "another problem", domain.CategoryOther, "")
	require.Error(t, err)

	// Other users are unaffected.
	_, err = mgr.StartDraft("u2", "no heat", domain.CategoryHVAC, domain.PriorityEmergency)
	require.NoError(t, err)
}

func TestConfirm_RefusesIncompleteDraft(t *testing.T) {
	mgr, repo := newTestManager(nil)

	_, err := mgr.StartDraft("u1", "something is wrong", "", "")
	require.NoError(t, err)

	_, err = mgr.Confirm(context.Background(), "u1")
	require.True(t, apperrors.HasCode(err, apperrors.CodeIncompleteTicketFields))
	missing := apperrors.ToDomainError(err).Details["missing"]
	require.Equal(t, []string{"category"}, missing)

	// The draft survives the refusal so the user can fill the gap.
	draft, ok := mgr.Draft("u1")
	require.True(t, ok)
	require.Equal(t, domain.TicketStatusDraft, draft.Status)

	// Nothing was persisted.
	unpublished, err := repo.ListUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, unpublished)
}

func TestConfirm_SubmitsCompleteDraft(t *testing.T) {
	sink := &recordingSink{}
	mgr, repo := newTestManager(sink)

	_, err := mgr.StartDraft("u1", "kitchen sink is leaking", domain.CategoryPlumbing, domain.PriorityHigh)
	require.NoError(t, err)

	submitted, err := mgr.Confirm(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "MAINT-000001", submitted.ID)
	require.Equal(t, domain.TicketStatusSubmitted, submitted.Status)
	require.False(t, submitted.CreatedAt.IsZero())

	// Draft is consumed; a second confirm has nothing to act on.
	_, ok := mgr.Draft("u1")
	require.False(t, ok)
	_, err = mgr.Confirm(context.Background(), "u1")
	require.Error(t, err)

	stored, err := repo.GetByID(context.Background(), "MAINT-000001")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusSubmitted, stored.Status)
	require.Equal(t, 1, sink.count())

	// Acked by the sink, so nothing is pending retry.
	unpublished, err := repo.ListUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, unpublished)
}

func TestConfirm_SinkFailureKeepsTicketDurable(t *testing.T) {
	sink := &recordingSink{fail: true}
	mgr, repo := newTestManager(sink)

	_, err := mgr.StartDraft("u1", "no power in the bedroom", domain.CategoryElectrical, domain.PriorityHigh)
	require.NoError(t, err)

	submitted, err := mgr.Confirm(context.Background(), "u1")
	require.NoError(t, err, "local durability must not depend on the sink ack")
	require.Equal(t, domain.TicketStatusSubmitted, submitted.Status)

	unpublished, err := repo.ListUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, unpublished, 1)
	require.Equal(t, submitted.ID, unpublished[0].ID)
}

func TestConfirm_SequentialIDs(t *testing.T) {
	mgr, _ := newTestManager(nil)

	for i, user := range []string{"u1", "u2"} {
		_, err := mgr.StartDraft(user, "leaking faucet", domain.CategoryPlumbing, "")
		require.NoError(t, err)
		submitted, err := mgr.Confirm(context.Background(), user)
		require.NoError(t, err)
		require.Equal(t, []string{"MAINT-000001", "MAINT-000002"}[i], submitted.ID)
	}
}

func TestAddDetail_DescriptionAccumulates(t *testing.T) {
	mgr, _ := newTestManager(nil)

	_, err := mgr.StartDraft("u1", "the oven", domain.CategoryAppliance, "")
	require.NoError(t, err)

	updated, err := mgr.AddDetail("u1", FieldDescription, "it won't heat past 150C")
	require.NoError(t, err)
	require.Equal(t, "the oven\nit won't heat past 150C", updated.Description)

	updated, err = mgr.AddDetail("u1", FieldPriority, string(domain.PriorityHigh))
	require.NoError(t, err)
	require.Equal(t, domain.PriorityHigh, updated.Priority)

	_, err = mgr.AddDetail("u1", DetailField("color"), "blue")
	require.Error(t, err)

	_, err = mgr.AddDetail("nobody", FieldDescription, "text")
	require.Error(t, err)
}

func TestCancel_DiscardsDraftCompletely(t *testing.T) {
	mgr, repo := newTestManager(nil)

	_, err := mgr.StartDraft("u1", "leaking pipe", domain.CategoryPlumbing, "")
	require.NoError(t, err)

	require.True(t, mgr.Cancel("u1"))
	_, ok := mgr.Draft("u1")
	require.False(t, ok)
	require.False(t, mgr.Cancel("u1"), "second cancel is a no-op")

	// A cancelled draft leaves no trace in the repository.
	unpublished, err := repo.ListUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, unpublished)

	// A fresh draft can start immediately after.
	_, err = mgr.StartDraft("u1", "same pipe again", domain.CategoryPlumbing, "")
	require.NoError(t, err)
}

func TestDiscardExpired(t *testing.T) {
	mgr, _ := newTestManager(nil)

	_, err := mgr.StartDraft("u1", "leak", domain.CategoryPlumbing, "")
	require.NoError(t, err)
	_, err = mgr.StartDraft("u2", "pests", domain.CategoryPest, "")
	require.NoError(t, err)

	require.Equal(t, 1, mgr.DiscardExpired([]string{"u1", "u3"}))
	_, ok := mgr.Draft("u1")
	require.False(t, ok)
	_, ok = mgr.Draft("u2")
	require.True(t, ok)
}

func TestExternalTransitions(t *testing.T) {
	mgr, _ := newTestManager(nil)
	ctx := context.Background()

	_, err := mgr.StartDraft("u1", "broken lock", domain.CategoryLocksmith, "")
	require.NoError(t, err)
	submitted, err := mgr.Confirm(ctx, "u1")
	require.NoError(t, err)

	acked, err := mgr.Acknowledge(ctx, submitted.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusAcknowledged, acked.Status)

	closed, err := mgr.Close(ctx, submitted.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, closed.Status)

	// Closed is terminal.
	_, err = mgr.Acknowledge(ctx, submitted.ID)
	require.Error(t, err)
	_, err = mgr.Close(ctx, submitted.ID)
	require.Error(t, err)

	_, err = mgr.Acknowledge(ctx, "MAINT-999999")
	require.Error(t, err)
}

func TestStatus_ReturnsPersistedTicket(t *testing.T) {
	mgr, _ := newTestManager(nil)
	ctx := context.Background()

	_, err := mgr.StartDraft("u1", "clogged drain", domain.CategoryPlumbing, "")
	require.NoError(t, err)
	submitted, err := mgr.Confirm(ctx, "u1")
	require.NoError(t, err)

	found, err := mgr.Status(ctx, submitted.ID)
	require.NoError(t, err)
	require.Equal(t, "u1", found.UserID)
	require.Equal(t, domain.TicketStatusSubmitted, found.Status)

	_, err = mgr.Status(ctx, "MAINT-424242")
	require.Error(t, err)
}
