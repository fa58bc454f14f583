package intent

import (
	"regexp"
	"strings"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// Classifier maps a normalized message plus session context to an intent
// with a confidence score. Implementations must be deterministic for
// identical (message, session state) input.
type Classifier interface {
	Classify(text string, session *domain.Session) domain.Classification
}

// KeywordClassifier is the default rule-based classifier. When the session
// is mid-ticket it biases toward PROVIDE_TICKET_DETAIL, CONFIRM and CANCEL
// before consulting the general rules, so a well-formed ticket answer such
// as "kitchen sink" is not misrouted as a new agreement question.
type KeywordClassifier struct {
	threshold float64
}

// NewKeywordClassifier constructs the classifier. Scores below threshold
// resolve to UNKNOWN, which never triggers a side-effecting action.
func NewKeywordClassifier(threshold float64) *KeywordClassifier {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &KeywordClassifier{threshold: threshold}
}

var (
	confirmWords = []string{"yes", "confirm", "confirmed", "ok", "okay", "sure", "yep", "submit", "go ahead", "correct"}
	cancelWords  = []string{"cancel", "stop", "never mind", "nevermind", "forget it", "quit", "abort", "no thanks"}

	maintenanceWords = []string{
		"broken", "leak", "leaking", "repair", "fix", "not working", "stopped working",
		"maintenance", "clogged", "dripping", "no power", "no heat", "no hot water",
		"flooding", "pest", "cockroach", "locked out", "won't turn on", "burst",
	}
	agreementWords = []string{
		"lease", "agreement", "rent", "deposit", "penalty", "policy", "clause",
		"landlord", "notice period", "termination", "sublet", "pet", "allowed",
		"due date", "late fee", "renewal", "guest",
	}
	interrogatives = []string{"what", "when", "how", "can i", "am i", "is the", "are there", "do i", "does the", "who"}
)

var statusPattern = regexp.MustCompile(`(?i)status\s*#?\s*(maint-\d+)`)

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(text string, session *domain.Session) domain.Classification {
	normalized := normalize(text)
	if normalized == "" {
		return domain.Classification{Intent: domain.IntentUnknown, Confidence: 0}
	}

	if statusPattern.MatchString(normalized) {
		return domain.Classification{Intent: domain.IntentTicketStatus, Confidence: 0.95}
	}

	inDialogue := session != nil && session.State != domain.SessionStateIdle

	if inDialogue {
		if matchesAny(normalized, confirmWords) {
			return domain.Classification{Intent: domain.IntentConfirm, Confidence: 0.9}
		}
		if matchesAny(normalized, cancelWords) || strings.Trim(normalized, ".,!") == "no" {
			return domain.Classification{Intent: domain.IntentCancel, Confidence: 0.9}
		}
		if session.State == domain.SessionStateAwaitingDetails {
			// Mid-collection, any other text is a detail answer.
			return domain.Classification{Intent: domain.IntentProvideTicketDetail, Confidence: 0.75}
		}
	}

	if matchesAny(normalized, cancelWords) {
		return domain.Classification{Intent: domain.IntentCancel, Confidence: 0.8}
	}
	if matchesAny(normalized, confirmWords) && len(strings.Fields(normalized)) <= 2 {
		// A bare "confirm" outside a ticket dialogue is still a confirm; the
		// router answers it with a no-op reply when nothing is in progress.
		return domain.Classification{Intent: domain.IntentConfirm, Confidence: 0.6}
	}

	ticketScore := keywordScore(normalized, maintenanceWords)
	questionScore := keywordScore(normalized, agreementWords)
	if strings.Contains(normalized, "?") || matchesAny(normalized, interrogatives) {
		questionScore += 0.25
	}

	best := domain.Classification{Intent: domain.IntentUnknown, Confidence: 0}
	if ticketScore >= questionScore && ticketScore > 0 {
		best = domain.Classification{Intent: domain.IntentRaiseTicket, Confidence: clamp(ticketScore)}
	} else if questionScore > 0 {
		best = domain.Classification{Intent: domain.IntentAskAgreementQuestion, Confidence: clamp(questionScore)}
	}

	if best.Confidence < c.threshold {
		return domain.Classification{Intent: domain.IntentUnknown, Confidence: best.Confidence}
	}
	return best
}

// ParseTicketRef extracts a ticket ID from a status request, if present.
func ParseTicketRef(text string) (string, bool) {
	match := statusPattern.FindStringSubmatch(strings.ToLower(text))
	if len(match) < 2 {
		return "", false
	}
	return strings.ToUpper(match[1]), true
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

var phrasePunct = strings.NewReplacer(".", " ", ",", " ", "!", " ", ";", " ", ":", " ")

func matchesAny(text string, words []string) bool {
	// "yes." and "confirm!" must match the same as their bare forms.
	cleaned := strings.TrimSpace(phrasePunct.Replace(text))
	for _, word := range words {
		if cleaned == word || strings.HasPrefix(cleaned, word+" ") || strings.HasSuffix(cleaned, " "+word) || strings.Contains(cleaned, " "+word+" ") {
			return true
		}
	}
	return false
}

func keywordScore(text string, words []string) float64 {
	hits := 0
	for _, word := range words {
		if strings.Contains(text, word) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return 0.4 + 0.2*float64(hits)
}

func clamp(score float64) float64 {
	if score > 0.95 {
		return 0.95
	}
	return score
}
