package domain

// Intent enumerates the closed set of recognized user intents. An intent is
// a pure classification result and carries no side effects itself.
type Intent string

const (
	IntentAskAgreementQuestion Intent = "ASK_AGREEMENT_QUESTION"
	IntentRaiseTicket          Intent = "RAISE_TICKET"
	IntentProvideTicketDetail  Intent = "PROVIDE_TICKET_DETAIL"
	IntentConfirm              Intent = "CONFIRM"
	IntentCancel               Intent = "CANCEL"
	IntentTicketStatus         Intent = "TICKET_STATUS"
	IntentUnknown              Intent = "UNKNOWN"
)

// Classification is the outcome of intent detection for one message.
type Classification struct {
	Intent     Intent
	Confidence float64
}
