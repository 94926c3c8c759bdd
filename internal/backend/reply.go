package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohmanhakim/booth-archiver/internal/translate"
)

// modelReply is the JSON object both LLM backends are asked to answer with.
type modelReply struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

func buildPrompt(text string, targetLang string) string {
	var sb strings.Builder
	sb.WriteString("Translate the text below into the language with ISO 639-1 code \"")
	sb.WriteString(targetLang)
	sb.WriteString("\".\n")
	sb.WriteString("Keep every " + translate.TabPlaceholder + " marker exactly where it is.\n")
	sb.WriteString("Answer with a single JSON object of the form ")
	sb.WriteString(`{"language": "<ISO 639-1 code of your answer>", "text": "<translation>"}`)
	sb.WriteString(" and nothing else.\n\n")
	sb.WriteString(text)
	return sb.String()
}

// parseModelReply decodes a model answer and checks that it is in the
// requested language.
func parseModelReply(backendName string, content string, targetLang string) (string, *translate.TranslationError) {
	content = stripCodeFence(content)

	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return "", &translate.TranslationError{
			Message: fmt.Sprintf("decode reply: %v", err),
			Cause:   translate.ErrCauseResponseInvalid,
			Backend: backendName,
		}
	}
	if reply.Text == "" {
		return "", &translate.TranslationError{
			Message: "reply has no text",
			Cause:   translate.ErrCauseResponseInvalid,
			Backend: backendName,
		}
	}
	if !sameLanguage(reply.Language, targetLang) {
		return "", &translate.TranslationError{
			Message:   "reply is in another language",
			Cause:     translate.ErrCauseLanguageMismatch,
			Backend:   backendName,
			Requested: targetLang,
			Returned:  reply.Language,
		}
	}
	return reply.Text, nil
}

// sameLanguage compares primary subtags, so "en-US" matches "en".
func sameLanguage(returned string, requested string) bool {
	return primarySubtag(returned) == primarySubtag(requested)
}

func primarySubtag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
