package dialogue

import (
	"fmt"
	"strings"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// Fixed reply texts. The transient-error reply deliberately carries no
// detail; internal failure context goes to the log, not the tenant.
const (
	replyTransient      = "Sorry, something went wrong on our side. Please try again in a moment."
	replyClarify        = "I'm not sure I understood that. You can ask a question about your rental agreement, or describe a maintenance problem."
	replyQAUnavailable  = "Agreement lookup is currently unavailable. You can still report a maintenance problem."
	replyNothingConfirm = "There's nothing to confirm right now."
	replyNothingCancel  = "There's no request in progress to cancel."
	replyCancelled      = "Okay, I've cancelled that request."
)

func draftPrompt(draft *domain.Ticket) string {
	if draft.Category == "" || draft.Category == domain.CategoryOther {
		return "Got it. What kind of problem is it - plumbing, electrical, an appliance, or something else?"
	}
	if draft.Description == "" {
		return "Got it. Can you describe the problem in a bit more detail?"
	}
	return draftSummary(draft)
}

func draftSummary(draft *domain.Ticket) string {
	return fmt.Sprintf(
		"Here's your maintenance request:\n\nCategory: %s\nPriority: %s\nDetails: %s\n\nReply 'confirm' to submit it, or 'cancel' to discard.",
		capitalize(string(draft.Category)),
		capitalize(string(draft.Priority)),
		draft.Description,
	)
}

func submittedReply(ticket *domain.Ticket) string {
	return fmt.Sprintf(
		"Maintenance Ticket #%s\n\nYour request has been received.\n\nCategory: %s\nPriority: %s\n\nWe'll review it and provide updates. For status, text 'status #%s'.",
		ticket.ID,
		capitalize(string(ticket.Category)),
		capitalize(string(ticket.Priority)),
		ticket.ID,
	)
}

func statusReply(ticket *domain.Ticket) string {
	return fmt.Sprintf("Ticket #%s is currently %s (last updated %s).",
		ticket.ID,
		strings.ToLower(string(ticket.Status)),
		ticket.UpdatedAt.Format("Jan 2 15:04"),
	)
}

func missingFieldPrompt(missing []string) string {
	if len(missing) == 0 {
		return replyClarify
	}
	if missing[0] == "category" {
		return "Before I submit this, what kind of problem is it - plumbing, electrical, an appliance, or something else?"
	}
	return "Before I submit this, can you briefly describe the problem?"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
