package scheduler_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohmanhakim/booth-archiver/internal/config"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/internal/scheduler"
	"github.com/rohmanhakim/booth-archiver/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rowByID(t *testing.T, rows []workbook.Row, id string) workbook.Row {
	t.Helper()
	for _, r := range rows {
		if r.ItemID == id {
			return r
		}
	}
	t.Fatalf("row %s not found", id)
	return workbook.Row{}
}

func TestExecuteArchive_FullRun(t *testing.T) {
	// GIVEN a storefront with a duplicated and a broken item
	fb := newFakeBooth(t)
	dir := t.TempDir()
	cfg := mustBuild(t, newConfigForTest(t, fb, dir))
	s := scheduler.NewScheduler(cfg, nil)

	// WHEN archiving
	execution, err := s.ExecuteArchive(context.Background())

	// THEN the run succeeds with the broken item dropped
	require.NoError(t, err)
	assert.Equal(t, 3, execution.Items)
	require.Len(t, execution.Rows, 2)
	assert.Equal(t, "10", execution.Rows[0].ItemID)
	assert.Equal(t, "11", execution.Rows[1].ItemID)

	// the session cookie was sent
	assert.Equal(t, "_plaza_session_nktz7u=test-cookie; adult=t", fb.cookies.Load())

	first := rowByID(t, execution.Rows, "10")
	assert.Equal(t, "EN:猫耳", first.ItemNameTranslated)
	assert.Equal(t, "EN:ショップ", first.AuthorNameTranslated)
	assert.True(t, first.VRChat)
	assert.Contains(t, first.MarkdownTranslated, "EN:説明")
	assert.Contains(t, first.MarkdownTranslated, "https://example.com/terms")
	assert.NotContains(t, first.MarkdownTranslated, "EN:https")

	second := rowByID(t, execution.Rows, "11")
	assert.Equal(t, []string{"https://img/11-page.png"}, second.ImageURLs)
	assert.Equal(t, []string{"https://booth.pm/downloadables/11"}, second.DownloadLinks)
	assert.Contains(t, second.MarkdownTranslated, "EN:かわいい")
	assert.Contains(t, second.MarkdownTranslated, "size: M")
	assert.NotContains(t, second.MarkdownTranslated, "EN:size")

	// the broken item is reported, not fatal
	var fetchErrors int
	for _, e := range execution.Errors {
		if e.PackageName() == "fetcher" {
			fetchErrors++
		}
	}
	assert.GreaterOrEqual(t, fetchErrors, 1)

	// both caches and the workbook are on disk
	assert.FileExists(t, cfg.FetchCachePath())
	assert.FileExists(t, cfg.TranslationCachePath())
	assert.NotEmpty(t, execution.WorkbookHash)

	f, openErr := excelize.OpenFile(cfg.OutputPath())
	require.NoError(t, openErr)
	defer f.Close()
	rows, rowsErr := f.GetRows(workbook.SheetName)
	require.NoError(t, rowsErr)
	assert.Len(t, rows, 3)

	stats, ok := s.Recorder().FinalStats()
	require.True(t, ok)
	assert.Equal(t, 2, stats.TotalRows)
	assert.Equal(t, 3, stats.TotalItems)
}

func TestExecuteArchive_SecondRunIsServedFromCache(t *testing.T) {
	// GIVEN a completed run
	fb := newFakeBooth(t)
	dir := t.TempDir()
	cfg := mustBuild(t, newConfigForTest(t, fb, dir))
	_, err := scheduler.NewScheduler(cfg, nil).ExecuteArchive(context.Background())
	require.NoError(t, err)
	itemCalls := fb.itemCalls.Load()
	translateCalls := fb.translateCalls.Load()

	// WHEN archiving again with the same cache directory
	execution, err := scheduler.NewScheduler(cfg, nil).ExecuteArchive(context.Background())
	require.NoError(t, err)

	// THEN only the broken item is fetched again and nothing is re-translated
	assert.Equal(t, itemCalls+1, fb.itemCalls.Load())
	assert.Equal(t, translateCalls, fb.translateCalls.Load())
	assert.Positive(t, execution.FetchStats.Hits)
	assert.Positive(t, execution.TranslationStats.Hits)
	assert.Zero(t, execution.TranslationStats.Misses)
}

func TestExecuteArchive_TranslationFailureKeepsOriginal(t *testing.T) {
	// GIVEN a backend that rejects everything
	fb := newFakeBooth(t)
	cfg := mustBuild(t, newConfigForTest(t, fb, t.TempDir()))
	backend := &refusingBackend{}
	s := scheduler.NewSchedulerWithDeps(cfg, nil, nil, nil, backend)

	// WHEN archiving
	execution, err := s.ExecuteArchive(context.Background())

	// THEN rows keep their original text and the failures are collected
	require.NoError(t, err)
	require.Len(t, execution.Rows, 2)
	row := rowByID(t, execution.Rows, "10")
	assert.Equal(t, row.ItemName, row.ItemNameTranslated)
	assert.Equal(t, row.AuthorName, row.AuthorNameTranslated)
	assert.Positive(t, backend.calls.Load())

	var translationErrors int
	for _, e := range execution.Errors {
		if e.PackageName() == "translate" {
			translationErrors++
			assert.Equal(t, metadata.CausePolicyDisallow, e.Cause())
		}
	}
	assert.Positive(t, translationErrors)
	assert.Zero(t, fb.translateCalls.Load())
}

func TestExecuteArchive_TranslationDisabled(t *testing.T) {
	fb := newFakeBooth(t)
	cfg := mustBuild(t, newConfigForTest(t, fb, t.TempDir()).WithTranslate(false))

	execution, err := scheduler.NewScheduler(cfg, nil).ExecuteArchive(context.Background())

	require.NoError(t, err)
	assert.Zero(t, fb.translateCalls.Load())
	row := rowByID(t, execution.Rows, "11")
	assert.Equal(t, "衣装", row.ItemNameTranslated)
	assert.Equal(t, row.Markdown, row.MarkdownTranslated)
}

func TestExecuteArchive_FirstPageFailureAborts(t *testing.T) {
	// GIVEN a wishlist whose first page is forbidden
	fb := newFakeBooth(t)
	fb.firstPageStatus.Store(403)
	dir := t.TempDir()
	cfg := mustBuild(t, newConfigForTest(t, fb, dir))

	// WHEN archiving
	execution, err := scheduler.NewScheduler(cfg, nil).ExecuteArchive(context.Background())

	// THEN the run fails before any item is fetched and no workbook is written
	require.Error(t, err)
	assert.Zero(t, execution.Items)
	assert.Zero(t, fb.itemCalls.Load())
	_, statErr := os.Stat(cfg.OutputPath())
	assert.True(t, os.IsNotExist(statErr))
	assert.NotEmpty(t, execution.Errors)
}

func TestExecuteArchive_WithWatchersReleasesEveryHandle(t *testing.T) {
	fb := newFakeBooth(t)
	cfg := mustBuild(t, newConfigForTest(t, fb, t.TempDir()).WithWatchCache(true))

	execution, err := scheduler.NewScheduler(cfg, nil).ExecuteArchive(context.Background())

	// a leaked handle would surface as an error here
	require.NoError(t, err)
	assert.Len(t, execution.Rows, 2)
}

func TestExecuteArchive_CookieFileMissing(t *testing.T) {
	fb := newFakeBooth(t)
	dir := t.TempDir()
	cfg := mustBuild(t, newConfigForTest(t, fb, dir).
		WithCookie("").
		WithCookieFile(filepath.Join(dir, "nope.txt")))

	_, err := scheduler.NewScheduler(cfg, nil).ExecuteArchive(context.Background())

	assert.ErrorIs(t, err, config.ErrReadCookieFail)
}

func TestExecuteArchive_URLSplitsAreLogged(t *testing.T) {
	fb := newFakeBooth(t)
	cfg := mustBuild(t, newConfigForTest(t, fb, t.TempDir()))

	execution, err := scheduler.NewScheduler(cfg, nil).ExecuteArchive(context.Background())
	require.NoError(t, err)

	// item 10's second description line has text on both sides of a url
	require.NotEmpty(t, execution.Splits)
	var found bool
	for _, split := range execution.Splits {
		if split.URL == "https://example.com/terms" {
			found = true
			assert.True(t, strings.HasPrefix(split.TranslatedLeft, "EN:"))
			assert.True(t, strings.HasPrefix(split.TranslatedRight, "EN:"))
			assert.Contains(t, split.Result, split.URL)
		}
	}
	assert.True(t, found)
}
