package index

import "strings"

// chunkText splits document text into overlapping chunks of roughly size
// characters, breaking on word boundaries. Overlap carries trailing words of
// one chunk into the next so clauses spanning a boundary stay retrievable.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		if overlap > 0 {
			carried := carryTail(current, overlap)
			current = append([]string(nil), carried...)
			currentLen = joinedLen(current)
		} else {
			current = nil
			currentLen = 0
		}
	}

	for _, word := range words {
		addition := len(word)
		if currentLen > 0 {
			addition++
		}
		if currentLen+addition > size && currentLen > 0 {
			flush()
		}
		if currentLen > 0 {
			currentLen++
		}
		current = append(current, word)
		currentLen += len(word)
	}
	if len(current) > 0 && joinedLen(current) > 0 {
		last := strings.Join(current, " ")
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], last) {
			chunks = append(chunks, last)
		}
	}
	return chunks
}

// carryTail returns the trailing words whose joined length stays within limit.
func carryTail(words []string, limit int) []string {
	total := 0
	start := len(words)
	for i := len(words) - 1; i >= 0; i-- {
		addition := len(words[i])
		if total > 0 {
			addition++
		}
		if total+addition > limit {
			break
		}
		total += addition
		start = i
	}
	return words[start:]
}

func joinedLen(words []string) int {
	total := 0
	for i, w := range words {
		if i > 0 {
			total++
		}
		total += len(w)
	}
	return total
}

// sectionLabel extracts a best-effort section heading from chunk text, e.g.
// "12. Early Termination" becomes "Section 12".
func sectionLabel(chunk string) string {
	chunk = strings.TrimSpace(chunk)
	end := strings.IndexByte(chunk, '.')
	if end <= 0 || end > 3 {
		return ""
	}
	for _, r := range chunk[:end] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return "Section " + chunk[:end]
}
