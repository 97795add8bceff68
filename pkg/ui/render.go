package ui

import (
	"strings"

	"faqchat/pkg/chat"
	"faqchat/pkg/ui/styles"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const (
	userLabel = "You"
	botLabel  = "FAQ"
)

// renderTranscript lays out every turn for a viewport of the given width.
// When pending is non-empty a typing line is appended for the awaited answer.
func renderTranscript(messages []chat.ChatMessage, width int, pending string) string {
	var lines []string
	for i, msg := range messages {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderMessage(msg, width)...)
	}
	if pending != "" {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, styles.BotLabelStyle.Render(botLabel+":")+" "+styles.TypingStyle.Render(pending))
	}
	return strings.Join(lines, "\n")
}

func renderMessage(msg chat.ChatMessage, width int) []string {
	labelStyle := styles.BotLabelStyle
	label := botLabel
	if msg.Role == chat.RoleUser {
		labelStyle = styles.UserLabelStyle
		label = userLabel
	}

	text, ok := chat.Normalize(msg.Content)
	if !ok {
		text = ""
	}

	lines := []string{labelStyle.Render(label + ":")}
	for _, line := range wrapText(sanitizeContent(text), width) {
		lines = append(lines, styles.TextStyle.Render(line))
	}
	return lines
}

// wrapText breaks text on word boundaries to fit width cells. Words wider
// than the line are split.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return strings.Split(text, "\n")
	}

	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		var sb strings.Builder
		lineWidth := 0
		for _, word := range words {
			for _, part := range splitByWidth(word, width) {
				partWidth := runewidth.StringWidth(part)
				if lineWidth > 0 && lineWidth+1+partWidth > width {
					out = append(out, sb.String())
					sb.Reset()
					lineWidth = 0
				}
				if lineWidth > 0 {
					sb.WriteByte(' ')
					lineWidth++
				}
				sb.WriteString(part)
				lineWidth += partWidth
			}
		}
		out = append(out, sb.String())
	}
	return out
}

func splitByWidth(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	if text == "" {
		return []string{""}
	}

	var parts []string
	var sb strings.Builder
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width && currentWidth > 0 {
			parts = append(parts, sb.String())
			sb.Reset()
			currentWidth = 0
		}
		sb.WriteRune(r)
		currentWidth += runeWidth
	}

	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	if width <= 3 {
		return runewidth.Truncate(text, width, "")
	}
	return runewidth.Truncate(text, width, "...")
}

func padStyled(text string, width int) string {
	if width <= 0 {
		return text
	}
	textWidth := lipgloss.Width(text)
	if textWidth >= width {
		return text
	}
	return text + strings.Repeat(" ", width-textWidth)
}

// sanitizeContent removes terminal escape sequences and control
// characters from backend text. Newlines and tabs survive.
func sanitizeContent(content string) string {
	if content == "" {
		return content
	}
	content = ansi.Strip(content)

	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		switch r {
		case '\n':
			sb.WriteRune(r)
			continue
		case '\t':
			sb.WriteString("    ")
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
