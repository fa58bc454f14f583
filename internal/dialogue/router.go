package dialogue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tenant-assistant/internal/domain"
	"github.com/spec-kit/tenant-assistant/internal/intent"
	"github.com/spec-kit/tenant-assistant/internal/observability"
	"github.com/spec-kit/tenant-assistant/internal/qa"
	"github.com/spec-kit/tenant-assistant/internal/session"
	"github.com/spec-kit/tenant-assistant/internal/ticket"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

// QAEngine answers agreement questions. Nil when the index failed to build
// at startup; the ticket flow stays available regardless.
type QAEngine interface {
	Ask(ctx context.Context, question string, memory []domain.Turn) (qa.Answer, error)
}

// Router is the single entry point of the conversation engine: it fetches
// the session, classifies intent, dispatches by (intent, state), commits the
// session atomically with the dispatch result and composes the reply. Every
// failure is converted to a user-facing reply here; nothing escapes to the
// channel adapter as an unhandled fault.
type Router struct {
	sessions   session.Store
	locks      *session.KeyedLocks
	classifier intent.Classifier
	categories intent.CategoryClassifier
	tickets    *ticket.Manager
	qa         QAEngine
	metrics    *observability.Metrics
	logger     *zap.Logger

	memoryTurns int
	now         func() time.Time
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Sessions   session.Store
	Locks      *session.KeyedLocks
	Classifier intent.Classifier
	Categories intent.CategoryClassifier
	Tickets    *ticket.Manager
	QA         QAEngine
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies, memoryTurns int) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locks := deps.Locks
	if locks == nil {
		locks = session.NewKeyedLocks()
	}
	if memoryTurns <= 0 {
		memoryTurns = 10
	}
	qaEngine := deps.QA
	if engine, ok := qaEngine.(*qa.Engine); ok && engine == nil {
		// A nil *qa.Engine inside the interface is still non-nil and would
		// reach Ask on a nil receiver; treat it as QA disabled.
		qaEngine = nil
	}
	return &Router{
		sessions:    deps.Sessions,
		locks:       locks,
		classifier:  deps.Classifier,
		categories:  deps.Categories,
		tickets:     deps.Tickets,
		qa:          qaEngine,
		metrics:     deps.Metrics,
		logger:      logger,
		memoryTurns: memoryTurns,
		now:         time.Now,
	}
}

// Handle processes one inbound message and returns the reply. Processing is
// serialized per user ID; messages from different users run concurrently.
func (r *Router) Handle(ctx context.Context, userID, text string) domain.Reply {
	release, err := r.locks.Acquire(ctx, userID)
	if err != nil {
		return domain.Reply{Text: replyTransient}
	}
	defer release()

	sess, err := r.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		// Fail closed: never fabricate a session.
		r.logger.Error("session store unavailable", zap.String("user_id", userID), zap.Error(err))
		r.recordError(apperrors.CodeSessionStoreUnavailable)
		return domain.Reply{Text: replyTransient}
	}

	cls := r.classifier.Classify(text, sess)
	r.recordIntent(cls.Intent)
	r.logger.Debug("message classified",
		zap.String("user_id", userID),
		zap.String("intent", string(cls.Intent)),
		zap.Float64("confidence", cls.Confidence),
		zap.String("session_state", string(sess.State)),
	)

	reply, commit := r.dispatch(ctx, release, sess, cls, text)
	if commit != nil {
		if err := r.sessions.Update(ctx, userID, commit); err != nil {
			// The pre-dispatch session state is still what's persisted, so a
			// retry of the same message is safe.
			r.logger.Error("session commit failed", zap.String("user_id", userID), zap.Error(err))
			r.recordError(apperrors.CodeSessionStoreUnavailable)
			return domain.Reply{Text: replyTransient}
		}
	}
	return reply
}

// dispatch routes a classified message. It returns the reply together with
// the session mutation to commit; a nil mutation means the session must stay
// untouched (transient failures, fail-closed paths).
func (r *Router) dispatch(ctx context.Context, release func(), sess *domain.Session, cls domain.Classification, text string) (domain.Reply, session.Mutator) {
	switch cls.Intent {
	case domain.IntentAskAgreementQuestion:
		return r.handleQuestion(ctx, release, sess, text)
	case domain.IntentRaiseTicket:
		return r.handleRaiseTicket(sess, text)
	case domain.IntentProvideTicketDetail:
		return r.handleDetail(sess, text)
	case domain.IntentConfirm:
		return r.handleConfirm(ctx, sess, text)
	case domain.IntentCancel:
		return r.handleCancel(sess, text)
	case domain.IntentTicketStatus:
		return r.handleStatus(ctx, sess, text)
	default:
		r.recordError(apperrors.CodeLowConfidence)
		return domain.Reply{
			Text:             replyClarify,
			SuggestedActions: []string{"Ask about the agreement", "Report a problem"},
		}, r.turnCommitter(sess.UserID, text, replyClarify, nil)
	}
}

// handleQuestion runs the QA path. The per-user lock is released while the
// model-provider calls are in flight so one slow retrieval cannot block the
// user's other turns, then reacquired to commit the result. The commit
// happens here, under the reacquired lock, so dispatch returns a nil
// mutator for this path.
func (r *Router) handleQuestion(ctx context.Context, release func(), sess *domain.Session, text string) (domain.Reply, session.Mutator) {
	if r.qa == nil {
		return domain.Reply{Text: replyQAUnavailable}, r.turnCommitter(sess.UserID, text, replyQAUnavailable, nil)
	}

	memory := sess.Clone().Memory
	userID := sess.UserID
	release()

	answer, err := r.qa.Ask(ctx, text, memory)

	reacquired, lockErr := r.locks.Acquire(ctx, userID)
	if lockErr != nil {
		return domain.Reply{Text: replyTransient}, nil
	}
	defer reacquired()

	if err != nil {
		r.logger.Warn("qa engine failed", zap.String("user_id", userID), zap.Error(err))
		if apperrors.HasCode(err, apperrors.CodeModelProviderTimeout) {
			r.recordError(apperrors.CodeModelProviderTimeout)
		}
		// Transient reply, session untouched.
		return domain.Reply{Text: replyTransient}, nil
	}
	if !answer.Found {
		r.recordError(apperrors.CodeDocumentIndexMiss)
	}

	reply := domain.Reply{
		Text:          answer.Text,
		CitedChunkIDs: answer.CitedChunkIDs,
	}
	if commitErr := r.sessions.Update(ctx, userID, r.turnCommitter(userID, text, answer.Text, nil)); commitErr != nil {
		r.logger.Error("session commit failed", zap.String("user_id", userID), zap.Error(commitErr))
		r.recordError(apperrors.CodeSessionStoreUnavailable)
	}
	return reply, nil
}

func (r *Router) handleRaiseTicket(sess *domain.Session, text string) (domain.Reply, session.Mutator) {
	if sess.State != domain.SessionStateIdle {
		// Mid-dialogue maintenance phrasing is an extra detail, not a second
		// ticket.
		return r.handleDetail(sess, text)
	}

	category, matched := r.categories.Category(text)
	if !matched {
		category = ""
	}
	draft, err := r.tickets.StartDraft(sess.UserID, text, category, intent.DerivePriority(text))
	if err != nil {
		r.logger.Warn("start draft failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return domain.Reply{Text: replyTransient}, nil
	}

	reply := domain.Reply{
		Text:             draftPrompt(draft),
		SuggestedActions: []string{"confirm", "cancel"},
	}
	state := domain.SessionStateAwaitingDetails
	return reply, r.turnCommitter(sess.UserID, text, reply.Text, &state)
}

func (r *Router) handleDetail(sess *domain.Session, text string) (domain.Reply, session.Mutator) {
	draft, ok := r.tickets.Draft(sess.UserID)
	if !ok {
		// A detail with nothing in progress means the draft is gone (expired
		// or cancelled elsewhere); reset the dialogue so the user is not
		// stuck answering a question nobody asked.
		return domain.Reply{Text: replyClarify}, r.turnCommitter(sess.UserID, text, replyClarify, r.resetState(sess))
	}

	if draft.Category == "" || draft.Category == domain.CategoryOther {
		if category, matched := r.categories.Category(text); matched {
			if _, err := r.tickets.AddDetail(sess.UserID, ticket.FieldCategory, string(category)); err != nil {
				return domain.Reply{Text: replyTransient}, nil
			}
		}
	}
	updated, err := r.tickets.AddDetail(sess.UserID, ticket.FieldDescription, text)
	if err != nil {
		r.logger.Warn("add detail failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return domain.Reply{Text: replyTransient}, nil
	}

	var reply domain.Reply
	state := domain.SessionStateAwaitingDetails
	if updated.RequiredFieldsComplete() {
		state = domain.SessionStateAwaitingConfirm
		reply = domain.Reply{Text: draftSummary(updated), SuggestedActions: []string{"confirm", "cancel"}}
	} else {
		reply = domain.Reply{Text: draftPrompt(updated)}
	}
	return reply, r.turnCommitter(sess.UserID, text, reply.Text, &state)
}

func (r *Router) handleConfirm(ctx context.Context, sess *domain.Session, text string) (domain.Reply, session.Mutator) {
	if _, ok := r.tickets.Draft(sess.UserID); !ok {
		return domain.Reply{Text: replyNothingConfirm}, r.turnCommitter(sess.UserID, text, replyNothingConfirm, r.resetState(sess))
	}

	submitted, err := r.tickets.Confirm(ctx, sess.UserID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeIncompleteTicketFields) {
			r.recordError(apperrors.CodeIncompleteTicketFields)
			missing := apperrors.ToDomainError(err).Details["missing"]
			prompt := missingFieldPrompt(toStrings(missing))
			state := domain.SessionStateAwaitingDetails
			return domain.Reply{Text: prompt}, r.turnCommitter(sess.UserID, text, prompt, &state)
		}
		r.logger.Error("ticket confirm failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return domain.Reply{Text: replyTransient}, nil
	}

	reply := domain.Reply{Text: submittedReply(submitted)}
	state := domain.SessionStateIdle
	return reply, r.turnCommitter(sess.UserID, text, reply.Text, &state)
}

func (r *Router) handleCancel(sess *domain.Session, text string) (domain.Reply, session.Mutator) {
	cancelled := r.tickets.Cancel(sess.UserID)
	replyText := replyCancelled
	if !cancelled && sess.State == domain.SessionStateIdle {
		replyText = replyNothingCancel
	}
	state := domain.SessionStateIdle
	return domain.Reply{Text: replyText}, r.turnCommitter(sess.UserID, text, replyText, &state)
}

func (r *Router) handleStatus(ctx context.Context, sess *domain.Session, text string) (domain.Reply, session.Mutator) {
	ref, ok := intent.ParseTicketRef(text)
	if !ok {
		return domain.Reply{Text: replyClarify}, r.turnCommitter(sess.UserID, text, replyClarify, nil)
	}
	found, err := r.tickets.Status(ctx, ref)
	if err != nil || found.UserID != sess.UserID {
		notFound := "I couldn't find a ticket " + ref + " for you."
		return domain.Reply{Text: notFound}, r.turnCommitter(sess.UserID, text, notFound, nil)
	}
	replyText := statusReply(found)
	return domain.Reply{Text: replyText}, r.turnCommitter(sess.UserID, text, replyText, nil)
}

// turnCommitter builds the atomic session mutation for one completed turn:
// remember the exchange, bump activity, and optionally move the state
// machine.
func (r *Router) turnCommitter(userID, message, replyText string, state *domain.SessionState) session.Mutator {
	now := r.now()
	return func(sess *domain.Session) error {
		sess.Remember(message, replyText, now, r.memoryTurns)
		sess.LastActive = now
		if state != nil {
			sess.State = *state
			if *state == domain.SessionStateIdle {
				sess.PendingIntent = ""
			}
		}
		return nil
	}
}

// resetState returns the IDLE transition when the session is mid-dialogue
// without a backing draft, and nil (state untouched) otherwise.
func (r *Router) resetState(sess *domain.Session) *domain.SessionState {
	if sess.State == domain.SessionStateIdle {
		return nil
	}
	idle := domain.SessionStateIdle
	return &idle
}

func (r *Router) recordIntent(it domain.Intent) {
	if r.metrics != nil {
		r.metrics.RecordMessage(string(it))
	}
}

func (r *Router) recordError(code string) {
	if r.metrics != nil {
		r.metrics.RecordFailure(code)
	}
}

func toStrings(val any) []string {
	items, ok := val.([]string)
	if !ok {
		return nil
	}
	return items
}
