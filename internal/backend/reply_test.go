package backend

import (
	"testing"

	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		cause   translate.TranslationErrorCause
	}{
		{"plain object", `{"language":"en","text":"Hello"}`, "Hello", ""},
		{"regional tag", `{"language":"en-US","text":"Hello"}`, "Hello", ""},
		{"fenced", "```json\n{\"language\":\"en\",\"text\":\"Hello\"}\n```", "Hello", ""},
		{"wrong language", `{"language":"ja","text":"こんにちは"}`, "", translate.ErrCauseLanguageMismatch},
		{"empty text", `{"language":"en","text":""}`, "", translate.ErrCauseResponseInvalid},
		{"not json", `Hello`, "", translate.ErrCauseResponseInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModelReply("test", tt.content, "en")
			if tt.cause == "" {
				require.Nil(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.cause, err.Cause)
		})
	}
}

func TestParseModelReply_MismatchNamesBothLanguages(t *testing.T) {
	_, err := parseModelReply("test", `{"language":"ja","text":"こんにちは"}`, "en")
	require.NotNil(t, err)
	assert.Equal(t, "en", err.Requested)
	assert.Equal(t, "ja", err.Returned)
	assert.Equal(t, `translation error: language mismatch: requested "en", got "ja"`, err.Error())
}

func TestParseGoogleResponse_SourceLanguage(t *testing.T) {
	text, source, err := parseGoogleResponse([]byte(`[[["Hi","やあ",null,null,1]],null,"ja"]`))
	require.NoError(t, err)
	assert.Equal(t, "Hi", text)
	assert.Equal(t, "ja", source)

	_, source, err = parseGoogleResponse([]byte(`[[["Hi","やあ"]]]`))
	require.NoError(t, err)
	assert.Empty(t, source)
}

func TestBuildPrompt_MentionsPlaceholderAndLanguage(t *testing.T) {
	prompt := buildPrompt("a<tab>b", "de")
	assert.Contains(t, prompt, `"de"`)
	assert.Contains(t, prompt, translate.TabPlaceholder)
	assert.Contains(t, prompt, "a<tab>b")
}
