package quiz

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BuildPrompt renders the instruction prompt for one generation attempt. It is
// a pure function: identical inputs always yield the identical string. The
// content block is truncated to maxChars before embedding so the prompt stays
// inside the model's context budget.
func BuildPrompt(content, topicLabel string, n int, kind Kind, maxChars int) string {
	content = truncate(content, maxChars)

	var sb strings.Builder

	sb.WriteString("You are an expert university-level teaching assistant.\n\n")

	sb.WriteString("TOPIC:\n")
	sb.WriteString(topicLabel)
	sb.WriteString("\n\n")

	sb.WriteString("REFERENCE TEXT (coherent excerpts on the same topic):\n")
	sb.WriteString(content)
	sb.WriteString("\n\n")

	sb.WriteString("TASK:\n")
	switch kind {
	case KindOpen:
		sb.WriteString(fmt.Sprintf("Write %d open questions.\n\n", n))
	default:
		sb.WriteString(fmt.Sprintf("Write %d multiple choice questions.\n\n", n))
	}

	sb.WriteString("MANDATORY RULES:\n")
	if kind != KindOpen {
		sb.WriteString("- 4 options (A, B, C, D)\n")
		sb.WriteString("- exactly one correct answer per question\n")
		sb.WriteString("- distractors must be plausible but wrong\n")
	}
	sb.WriteString("- do not invent facts beyond the reference text\n")
	sb.WriteString("- university-level phrasing\n")
	sb.WriteString("- the \"explanation\" field must be a literal excerpt from the reference text that justifies the correct answer\n\n")

	sb.WriteString("OUTPUT FORMAT:\n")
	sb.WriteString("Return ONLY a valid JSON array, with no extra text.\n\n")
	if kind == KindOpen {
		sb.WriteString(`[
  {
    "question": "...",
    "explanation": "..."
  }
]
`)
	} else {
		sb.WriteString(`[
  {
    "question": "...",
    "options": {
      "A": "...",
      "B": "...",
      "C": "...",
      "D": "..."
    },
    "correct_answer": "A",
    "explanation": "..."
  }
]
`)
	}

	return sb.String()
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
