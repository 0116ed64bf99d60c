package rag

import (
	"fmt"
	"strings"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
)

const contextSeparator = "\n\n"

func formatHistory(history []sessionModel.Turn) string {
	var b strings.Builder
	for _, turn := range history {
		switch turn.Role {
		case sessionModel.RoleUser:
			b.WriteString("\nHuman: ")
		case sessionModel.RoleAssistant:
			b.WriteString("\nAssistant: ")
		}
		b.WriteString(turn.Content)
	}
	return b.String()
}

func buildCondensePrompt(history []sessionModel.Turn, question string) string {
	return fmt.Sprintf(config.CondenseQuestionPrompt, formatHistory(history), question)
}

// buildStuffPrompt puts every retrieved chunk into the prompt in nearest-first order.
func buildStuffPrompt(matches []commonModels.RetrievedChunk, question string) string {
	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		contents = append(contents, m.Content)
	}
	return fmt.Sprintf(config.StuffDocumentsPrompt, strings.Join(contents, contextSeparator), question)
}

func describeSources(matches []commonModels.RetrievedChunk) []string {
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, fmt.Sprintf("%s#chunk-%d (score %.3f)", strings.Join(m.Documents, ","), m.ChunkOrder, m.Score))
	}
	return sources
}
