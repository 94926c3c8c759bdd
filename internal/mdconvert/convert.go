package mdconvert

import (
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

/*
Item descriptions arrive either as plain text with line breaks or as an
HTML fragment. Both end up as Markdown:

- HTML goes through html-to-markdown with the commonmark and table plugins
- Plain text is kept as written, only line endings are normalized

Links and images are preserved as-is (no resolution).
*/

var htmlTag = regexp.MustCompile(`(?i)</?(p|br|div|span|a|ul|ol|li|h[1-6]|strong|em|b|i|img|table|pre|code)\b[^>]*>`)

type Converter struct {
	metadataSink metadata.MetadataSink
	conv         *converter.Converter
}

func NewConverter(metadataSink metadata.MetadataSink) *Converter {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &Converter{
		metadataSink: metadataSink,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// ToMarkdown converts a description. itemID only labels recorded errors.
func (c *Converter) ToMarkdown(itemID string, description string) (string, failure.ClassifiedError) {
	description = normalizeNewlines(description)
	if !IsHTML(description) {
		return strings.TrimSpace(description), nil
	}

	md, err := c.conv.ConvertString(description)
	if err != nil {
		conversionErr := &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
		}
		c.metadataSink.RecordError(
			time.Now(),
			"mdconvert",
			"Converter.ToMarkdown",
			mapConversionErrorToMetadataCause(conversionErr),
			conversionErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrItemID, itemID),
			},
		)
		return "", conversionErr
	}
	return strings.TrimSpace(md), nil
}

// IsHTML reports whether s contains common block or inline HTML tags.
func IsHTML(s string) bool {
	return htmlTag.MatchString(s)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
