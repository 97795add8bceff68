package chat

// FormatHistory converts prior conversation turns into wire messages.
// Instructional turns and turns without content are dropped, survivors
// are re-identified, and order is preserved.
func FormatHistory(history []ChatMessage) []WireMessage {
	return formatHistory(history, NewID)
}

func formatHistory(history []ChatMessage, newID func() string) []WireMessage {
	out := make([]WireMessage, 0, len(history))
	for _, msg := range history {
		if msg.Role.Instructional() || isEmptyContent(msg.Content) {
			continue
		}
		out = append(out, WireMessage{
			ID:      newID(),
			Role:    msg.Role,
			Content: contentString(msg.Content),
		})
	}
	return out
}

// isEmptyContent matches missing content and the empty string. Lists
// and tagged objects count as content even when empty.
func isEmptyContent(c Content) bool {
	switch v := c.(type) {
	case nil:
		return true
	case Text:
		return v == ""
	}
	return false
}
