package workbook

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/fileutil"
	"github.com/rohmanhakim/booth-archiver/pkg/hashutil"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Wishlist"

// MaxCellChars is the xlsx limit on characters in one cell.
const MaxCellChars = excelize.TotalCellChars

type Writer struct {
	metadataSink metadata.MetadataSink
	hashAlgo     hashutil.HashAlgo
}

func NewWriter(metadataSink metadata.MetadataSink, hashAlgo hashutil.HashAlgo) *Writer {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &Writer{metadataSink: metadataSink, hashAlgo: hashAlgo}
}

// Write renders rows into a single-sheet workbook and atomically replaces path.
func (w *Writer) Write(path string, rows []Row) (string, failure.ClassifiedError) {
	data, err := Render(rows)
	if err != nil {
		err.Path = path
		w.recordError(err)
		return "", err
	}

	if writeErr := fileutil.WriteFileAtomic(path, data, 0o644); writeErr != nil {
		wbErr := &WorkbookError{
			Message: writeErr.Error(),
			Cause:   ErrCauseWriteFailed,
			Path:    path,
		}
		w.recordError(wbErr)
		return "", wbErr
	}

	contentHash, hashErr := hashutil.HashBytes(data, w.hashAlgo)
	if hashErr != nil {
		contentHash = ""
	}
	w.metadataSink.RecordArtifact(
		metadata.ArtifactWorkbook,
		path,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, path),
			metadata.NewAttr(metadata.AttrMessage, fmt.Sprintf("%d rows, %s %s", len(rows), w.hashAlgo, contentHash)),
		},
	)
	return contentHash, nil
}

func (w *Writer) recordError(err *WorkbookError) {
	w.metadataSink.RecordError(
		time.Now(),
		"workbook",
		"Writer.Write",
		mapWorkbookErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, err.Path),
		},
	)
}

// Render builds the workbook in memory and returns its xlsx bytes.
func Render(rows []Row) ([]byte, *WorkbookError) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, &WorkbookError{Message: err.Error(), Cause: ErrCauseLayout}
	}

	for col, header := range Headers {
		if err := setCell(f, col, 1, header); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		rowNum := i + 2
		for col, value := range row.values() {
			if err := setCell(f, col, rowNum, value); err != nil {
				return nil, err
			}
			if hyperlinkColumns[col] {
				if err := setLink(f, col, rowNum, value); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := layout(f, len(rows)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &WorkbookError{Message: err.Error(), Cause: ErrCauseEncode}
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value any) *WorkbookError {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return &WorkbookError{Message: err.Error(), Cause: ErrCauseCellWrite}
	}
	if s, ok := value.(string); ok {
		value = Truncate(s, MaxCellChars)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return &WorkbookError{Message: fmt.Sprintf("%s: %v", cell, err), Cause: ErrCauseCellWrite}
	}
	return nil
}

func setLink(f *excelize.File, col, row int, value any) *WorkbookError {
	link, ok := value.(string)
	if !ok || link == "" {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return &WorkbookError{Message: err.Error(), Cause: ErrCauseCellWrite}
	}
	if err := f.SetCellHyperLink(SheetName, cell, link, "External"); err != nil {
		return &WorkbookError{Message: fmt.Sprintf("%s: %v", cell, err), Cause: ErrCauseCellWrite}
	}
	return nil
}

// layout adds the header autofilter over the data and freezes the header row.
func layout(f *excelize.File, rowCount int) *WorkbookError {
	lastCol, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return &WorkbookError{Message: err.Error(), Cause: ErrCauseLayout}
	}
	filterRange := fmt.Sprintf("A1:%s%d", lastCol, rowCount+1)
	if err := f.AutoFilter(SheetName, filterRange, []excelize.AutoFilterOptions{}); err != nil {
		return &WorkbookError{Message: err.Error(), Cause: ErrCauseLayout}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return &WorkbookError{Message: err.Error(), Cause: ErrCauseLayout}
	}
	return nil
}

// Truncate cuts s to at most limit characters.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
