package domain

// Reply is the structured response returned for one inbound message.
type Reply struct {
	Text             string
	SuggestedActions []string
	CitedChunkIDs    []string
}
