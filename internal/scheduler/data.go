package scheduler

import (
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/cache"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/internal/workbook"
)

// ArchiveExecution is what one archive run produced. Rows are in
// first-seen wishlist order; items that failed to fetch are missing from Rows
// and present in Errors.
type ArchiveExecution struct {
	Items            int
	Rows             []workbook.Row
	Errors           []metadata.ErrorRecord
	FetchStats       cache.Stats
	TranslationStats cache.Stats
	Splits           []translate.UrlTranslationContext
	WorkbookPath     string
	WorkbookHash     string
	Duration         time.Duration
}

// itemResult is the slot one fetch worker fills.
type itemResult struct {
	row workbook.Row
	ok  bool
}
