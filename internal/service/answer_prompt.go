package service

import (
	"fmt"
	"strings"

	"rag-chat/internal/domain"
)

const (
	DegradedNotice      = "I couldn't reach the model right now. Here are the most relevant sources I found:"
	EmptyAnswerText     = "Sorry, I could not generate an answer."
	maxDegradedContexts = 3
)

// BuildAnswerPrompt arma el prompt con los pasajes numerados y la pregunta del usuario.
func BuildAnswerPrompt(contexts []domain.Context, question string) string {
	var sb strings.Builder
	sb.WriteString("You are a news assistant. Answer the user question using only the context passages below. ")
	sb.WriteString("If the passages do not contain the answer, say you don't know instead of making something up.\n\n")
	sb.WriteString("Context:\n")
	if len(contexts) == 0 {
		sb.WriteString("(no context passages were found)")
	} else {
		sb.WriteString(formatPassages(contexts))
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// BuildDegradedAnswer arma el aviso de modo degradado con hasta 3 pasajes
// textuales y devuelve ese mismo subconjunto.
func BuildDegradedAnswer(contexts []domain.Context) (string, []domain.Context) {
	n := min(maxDegradedContexts, len(contexts))
	top := make([]domain.Context, n)
	copy(top, contexts[:n])

	if n == 0 {
		return DegradedNotice + "\n\n(no sources were found)", top
	}
	return DegradedNotice + "\n\n" + formatPassages(top), top
}

func formatPassages(contexts []domain.Context) string {
	parts := make([]string, 0, len(contexts))
	for i, c := range contexts {
		parts = append(parts, fmt.Sprintf("(%d) %s\nSource: %s", i+1, c.Text, c.Source))
	}
	return strings.Join(parts, "\n\n")
}
