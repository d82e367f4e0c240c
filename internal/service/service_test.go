package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/mocks"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/repository"
	"github.com/timeline-exhibit-api/internal/service"
	"github.com/timeline-exhibit-api/internal/spreadsheet"
)

type testHarness struct {
	services  *service.Services
	timelines *mocks.MockTimelineRepository
	jobs      *mocks.MockJobRepository
	catalog   *mocks.MockCatalog
	uploadDir string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{
		timelines: mocks.NewMockTimelineRepository(),
		jobs:      mocks.NewMockJobRepository(),
		catalog:   mocks.NewMockCatalog(),
		uploadDir: t.TempDir(),
	}
	h.catalog.AddResource(42, "dcterms:identifier", "ms-42")
	h.catalog.AddResource(5, "dcterms:date", "1850")
	h.catalog.AddAsset(42)

	repos := &repository.Repositories{
		Timeline: h.timelines,
		Job:      h.jobs,
		Catalog:  h.catalog,
	}
	cfg := &config.Config{
		Import: config.ImportConfig{
			MaxUploadSize: 1024 * 1024,
			UploadDir:     h.uploadDir,
			FetchTimeout:  5 * time.Second,
			Workers:       2,
			PollInterval:  10 * time.Millisecond,
		},
		Timeline: config.TimelineConfig{
			IdentifierProperty: "dcterms:identifier",
		},
	}

	h.services = service.NewServices(repos, cfg, zerolog.Nop())
	return h
}

func (h *testHarness) createTimeline(t *testing.T, req *models.TimelineRequest) *models.Timeline {
	t.Helper()
	tl, err := h.services.Timeline.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return tl
}

// sheet builds a CSV with the template header. Each row maps column names
// to cells.
func sheet(rows ...map[string]string) []byte {
	return sheetWithHeader(spreadsheet.Columns, rows...)
}

func sheetWithHeader(header []string, rows ...map[string]string) []byte {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	w.Write(header)
	for _, row := range rows {
		record := make([]string, len(header))
		for i, name := range header {
			record[i] = row[name]
		}
		w.Write(record)
	}
	w.Flush()
	return b.Bytes()
}

func headlines(slides []models.Slide) []string {
	out := make([]string, len(slides))
	for i := range slides {
		out[i] = slides[i].HeadlineText()
	}
	return out
}

func TestTimelineService_Create(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		scale string
		want  models.Scale
	}{
		{scale: "cosmological", want: models.ScaleCosmological},
		{scale: "geological", want: models.ScaleHuman},
		{scale: "", want: models.ScaleHuman},
	}
	for _, tt := range tests {
		tl := h.createTimeline(t, &models.TimelineRequest{Title: "  Voyages  ", Scale: tt.scale})
		if tl.Scale != tt.want {
			t.Errorf("Scale %q: expected %s, got %s", tt.scale, tt.want, tl.Scale)
		}
		if tl.Title != "Voyages" {
			t.Errorf("Expected trimmed title, got %q", tl.Title)
		}
	}

	count, _ := h.services.Timeline.Count(context.Background())
	if count != 3 {
		t.Errorf("Expected 3 timelines, got %d", count)
	}
}

func TestTimelineService_GetUnknown(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "6f1c2a7e-3d7b-4e47-9f55-4f1a2b3c4d5e"} {
		tl, err := h.services.Timeline.Get(ctx, id)
		if err != nil || tl != nil {
			t.Errorf("Get(%q) = %v, %v; want nil, nil", id, tl, err)
		}
		deleted, err := h.services.Timeline.Delete(ctx, id)
		if err != nil || deleted {
			t.Errorf("Delete(%q) = %v, %v; want false, nil", id, deleted, err)
		}
	}
}

func TestTimelineService_ReplaceSlides(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tl := h.createTimeline(t, &models.TimelineRequest{Title: "Exhibit"})

	drafts := []models.SlideDraft{
		{Type: "title", Headline: "T"},
		{StartDate: "1900", Headline: "A", Caption: "line1\r\nline2"},
		{Headline: "   "},
		{StartDate: "-300", Headline: "B", Asset: "asset/42"},
		{StartDate: "nineteen", Headline: "bad date"},
	}
	resp, err := h.services.Timeline.ReplaceSlides(ctx, tl.ID, drafts)
	if err != nil {
		t.Fatalf("ReplaceSlides failed: %v", err)
	}

	// The slide with an unparsable date keeps its headline and sorts first
	if diff := cmp.Diff([]string{"bad date", "B", "A", "T"}, headlines(resp.Slides)); diff != "" {
		t.Errorf("Unexpected order (-want +got):\n%s", diff)
	}
	if resp.ErrorCount != 1 || resp.Errors[0].Row != 5 {
		t.Errorf("Expected one error on draft 5, got %+v", resp.Errors)
	}

	stored := h.timelines.Slides(tl.ID)
	if len(stored) != len(resp.Slides) {
		t.Fatalf("Expected %d stored slides, got %d", len(resp.Slides), len(stored))
	}
	for _, s := range stored {
		if s.HeadlineText() == "A" && (s.Caption == nil || *s.Caption != "line1\nline2") {
			t.Errorf("Expected normalized caption, got %v", s.Caption)
		}
		if s.HeadlineText() == "B" && s.Media != models.AssetRef(42) {
			t.Errorf("Expected asset 42, got %+v", s.Media)
		}
	}

	stored2, _ := h.timelines.GetByID(ctx, tl.ID)
	if !strings.Contains(stored2.FullText, "line1") || !strings.Contains(stored2.FullText, "-300") {
		t.Errorf("Expected full text to be rebuilt, got %q", stored2.FullText)
	}

	resp, err = h.services.Timeline.ReplaceSlides(ctx, "6f1c2a7e-3d7b-4e47-9f55-4f1a2b3c4d5e", drafts)
	if err != nil || resp != nil {
		t.Errorf("Expected nil response for unknown timeline, got %v, %v", resp, err)
	}
}

func TestTimelineService_PreviewDoesNotSave(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tl := h.createTimeline(t, &models.TimelineRequest{Title: "Exhibit"})

	content := sheet(map[string]string{spreadsheet.ColYear: "1900", spreadsheet.ColHeadline: "A"})
	resp, err := h.services.Timeline.Preview(ctx, tl.ID, service.SpreadsheetSource{Content: content, MediaType: "text/csv"})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(resp.Slides) != 1 {
		t.Errorf("Expected 1 slide, got %d", len(resp.Slides))
	}
	if h.timelines.ReplaceCalls != 0 {
		t.Errorf("Expected preview not to save, got %d saves", h.timelines.ReplaceCalls)
	}
}

func TestExportService_CSVRoundTrip(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tl := h.createTimeline(t, &models.TimelineRequest{Title: "Exhibit"})

	drafts := []models.SlideDraft{
		{Type: "title", Headline: "T"},
		{StartDate: "1900-05-03T14:30", Headline: "A", Resource: "42", BackgroundColor: "#102030"},
		{StartDate: "-300", EndDate: "-200", Type: "era", Headline: "B", Group: "antiquity"},
	}
	saved, err := h.services.Timeline.ReplaceSlides(ctx, tl.ID, drafts)
	if err != nil {
		t.Fatalf("ReplaceSlides failed: %v", err)
	}

	w := httptest.NewRecorder()
	if err := h.services.Export.StreamSlides(ctx, w, tl.ID, service.FormatCSV); err != nil {
		t.Fatalf("StreamSlides failed: %v", err)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}

	result, err := h.services.Ingest.Ingest(ctx, service.Source{Spreadsheet: &service.SpreadsheetSource{
		Content:   w.Body.Bytes(),
		MediaType: "text/csv",
	}}, service.Options{})
	if err != nil {
		t.Fatalf("Re-import failed: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Expected no errors, got %+v", result.Errors)
	}
	if diff := cmp.Diff(saved.Slides, result.Slides); diff != "" {
		t.Errorf("Round trip changed slides (-want +got):\n%s", diff)
	}
}

func TestExportService_Formats(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tl := h.createTimeline(t, &models.TimelineRequest{Title: "Exhibit"})
	h.services.Timeline.ReplaceSlides(ctx, tl.ID, []models.SlideDraft{
		{StartDate: "1900", Headline: "A"},
		{StartDate: "1901", Headline: "B"},
	})

	tests := []struct {
		format      string
		contentType string
		check       func(body string) bool
	}{
		{format: service.FormatJSON, contentType: "application/json", check: func(b string) bool {
			return strings.HasPrefix(b, "[") && strings.HasSuffix(b, "]") && strings.Count(b, `"headline"`) == 2
		}},
		{format: service.FormatNDJSON, contentType: "application/x-ndjson", check: func(b string) bool {
			return strings.Count(b, "\n") == 2
		}},
		{format: service.FormatXLSX, contentType: spreadsheet.MediaTypeXLSX, check: func(b string) bool {
			return strings.HasPrefix(b, "PK")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := h.services.Export.StreamSlides(ctx, w, tl.ID, tt.format); err != nil {
				t.Fatalf("StreamSlides failed: %v", err)
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Expected %s, got %s", tt.contentType, ct)
			}
			if !tt.check(w.Body.String()) {
				t.Errorf("Unexpected body: %q", w.Body.String())
			}
		})
	}

	if err := h.services.Export.StreamSlides(ctx, httptest.NewRecorder(), tl.ID, "pdf"); err == nil {
		t.Error("Expected unsupported format error")
	}
}

func TestExportService_XLSXReimport(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tl := h.createTimeline(t, &models.TimelineRequest{Title: "Exhibit"})
	h.services.Timeline.ReplaceSlides(ctx, tl.ID, []models.SlideDraft{
		{StartDate: "1901", Headline: "B"},
		{StartDate: "1900", Headline: "A"},
	})

	w := httptest.NewRecorder()
	if err := h.services.Export.StreamSlides(ctx, w, tl.ID, service.FormatXLSX); err != nil {
		t.Fatalf("StreamSlides failed: %v", err)
	}
	path := filepath.Join(h.uploadDir, "export.xlsx")
	if err := os.WriteFile(path, w.Body.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result, err := h.services.Ingest.Ingest(ctx, service.Source{Spreadsheet: &service.SpreadsheetSource{Location: "export.xlsx"}}, service.Options{})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, headlines(result.Slides)); diff != "" {
		t.Errorf("Unexpected slides (-want +got):\n%s", diff)
	}
}
