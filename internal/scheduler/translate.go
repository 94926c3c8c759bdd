package scheduler

import (
	"context"
	"strings"

	"github.com/rohmanhakim/booth-archiver/internal/mdconvert"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/internal/workbook"
	"github.com/sourcegraph/conc/pool"
)

// translateRows fills the translated columns in place. Every worker clones
// the translation handle; a failed field keeps its original text.
func (s *Scheduler) translateRows(ctx context.Context, r *run, rows []workbook.Row) {
	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency())
	for i := range rows {
		handle := r.translationHandle.Clone()
		p.Go(func() {
			defer handle.Release()
			if ctx.Err() != nil {
				return
			}
			translator := translate.NewTranslator(
				r.backend,
				handle,
				s.cfg.TargetLang(),
				translate.WithContextLog(r.translationLog),
				translate.WithMetadataSink(s.recorder),
				translate.WithLogger(s.logger),
			)
			translateRow(ctx, translator, &rows[i])
		})
	}
	p.Wait()
}

func translateRow(ctx context.Context, translator *translate.Translator, row *workbook.Row) {
	attrs := func(field string) []metadata.Attribute {
		return []metadata.Attribute{
			metadata.NewAttr(metadata.AttrItemID, row.ItemID),
			metadata.NewAttr(metadata.AttrField, field),
		}
	}
	row.ItemNameTranslated = translateOr(ctx, translator, row.ItemName, attrs("item_name"))
	row.AuthorNameTranslated = translateOr(ctx, translator, row.AuthorName, attrs("author_name"))
	row.MarkdownTranslated = translateMarkdown(ctx, translator, row.Markdown, attrs("markdown"))
}

// translateMarkdown translates prose line by line so each backend call sees
// one line of text. Code blocks are kept verbatim.
func translateMarkdown(
	ctx context.Context,
	translator *translate.Translator,
	md string,
	attrs []metadata.Attribute,
) string {
	blocks := mdconvert.Blocks(md)
	if len(blocks) == 0 {
		return md
	}
	for i, block := range blocks {
		if block.Verbatim {
			continue
		}
		lines := block.Lines()
		for j, line := range lines {
			lines[j] = translateOr(ctx, translator, line, attrs)
		}
		blocks[i].Text = strings.Join(lines, "\n")
	}
	return mdconvert.JoinBlocks(blocks)
}

// translateOr returns the translation of text, or text itself when the
// translation fails. The translator has already recorded the failure.
func translateOr(
	ctx context.Context,
	translator *translate.Translator,
	text string,
	attrs []metadata.Attribute,
) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	translated, err := translator.TranslateWithAttrs(ctx, text, attrs)
	if err != nil || translated == "" {
		return text
	}
	return translated
}
