package service

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/tieubaoca/embedding-be/types"
)

func testChunker(size, overlap, minLen int) *Chunker {
	return NewChunker(types.DocumentServiceConfig{
		ChunkSize:      size,
		ChunkOverlap:   overlap,
		MinChunkLength: minLen,
	})
}

func sentenceText(n int) string {
	sentences := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sentences = append(sentences, fmt.Sprintf("this is test sentence number %d", i))
	}
	return strings.Join(sentences, ". ") + "."
}

func TestChunkTextSmallInputSingleChunk(t *testing.T) {
	c := testChunker(800, 150, 20)
	text := "hello world, this is a tiny document."

	chunks := c.ChunkText(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q, want %q", chunks[0], text)
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	c := testChunker(100, 40, 5)
	text := sentenceText(20)

	first := c.ChunkText(text)
	second := c.ChunkText(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same input produced different chunks:\n%v\n%v", first, second)
	}
}

func TestChunkTextRespectsChunkSize(t *testing.T) {
	c := testChunker(100, 40, 5)
	chunks := c.ChunkText(sentenceText(30))

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Errorf("chunk %d has %d bytes, limit is 100", i, len(chunk))
		}
	}
}

func TestChunkTextDropsShortChunks(t *testing.T) {
	c := testChunker(30, 0, 5)
	text := "hi\n\nthis is a much longer paragraph here"

	chunks := c.ChunkText(text)
	for _, chunk := range chunks {
		if chunk == "hi" {
			t.Errorf("short chunk %q should have been dropped", chunk)
		}
		if len(strings.TrimSpace(chunk)) <= 5 {
			t.Errorf("chunk %q is under the minimum length", chunk)
		}
	}
}

func TestChunkTextWithPagesSpans(t *testing.T) {
	c := testChunker(100, 40, 5)
	text := sentenceText(8)

	records := c.ChunkTextWithPages(text, SinglePageRecord(text))
	if len(records) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(records))
	}

	prevStart := -1
	for i, record := range records {
		if record.CharStart <= prevStart {
			t.Errorf("chunk %d start %d is not after previous start %d", i, record.CharStart, prevStart)
		}
		prevStart = record.CharStart
		if record.CharEnd != record.CharStart+len(record.Text) {
			t.Errorf("chunk %d span [%d,%d) does not match text length %d",
				i, record.CharStart, record.CharEnd, len(record.Text))
		}
		if got := text[record.CharStart:record.CharEnd]; got != record.Text {
			t.Errorf("chunk %d span resolves to %q, want %q", i, got, record.Text)
		}
		if !reflect.DeepEqual(record.Pages, []int{1}) {
			t.Errorf("chunk %d pages = %v, want [1]", i, record.Pages)
		}
	}
}

func TestChunkTextWithPagesOverlappingChunks(t *testing.T) {
	c := testChunker(100, 40, 5)
	text := sentenceText(8)

	records := c.ChunkTextWithPages(text, SinglePageRecord(text))
	if len(records) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(records))
	}
	// With an overlap larger than one sentence, each chunk starts
	// before the previous one ends.
	for i := 1; i < len(records); i++ {
		if records[i].CharStart >= records[i-1].CharEnd {
			t.Errorf("chunk %d start %d does not overlap previous end %d",
				i, records[i].CharStart, records[i-1].CharEnd)
		}
	}
}

func TestChunkTextWithPagesMultiplePages(t *testing.T) {
	c := testChunker(100, 40, 5)
	text := sentenceText(8)
	cut := 80
	pages := []types.PageRecord{
		{PageNumber: 1, Text: text[:cut], CharStart: 0, CharEnd: cut},
		{PageNumber: 2, Text: text[cut:], CharStart: cut, CharEnd: len(text)},
	}

	records := c.ChunkTextWithPages(text, pages)
	if len(records) == 0 {
		t.Fatal("no chunks produced")
	}
	first := records[0]
	if first.CharStart >= cut || first.CharEnd <= cut {
		t.Fatalf("test setup broken: first chunk [%d,%d) must straddle the page cut %d",
			first.CharStart, first.CharEnd, cut)
	}
	if !reflect.DeepEqual(first.Pages, []int{1, 2}) {
		t.Errorf("straddling chunk pages = %v, want [1 2]", first.Pages)
	}

	last := records[len(records)-1]
	if last.CharStart >= cut {
		if !reflect.DeepEqual(last.Pages, []int{2}) {
			t.Errorf("final chunk pages = %v, want [2]", last.Pages)
		}
	}
}

func TestChunkTextWithPagesSkipsShortButKeepsCursor(t *testing.T) {
	c := testChunker(30, 0, 5)
	// "hi" appears again inside the long paragraph. The short chunk is
	// dropped but must still advance the cursor so later spans stay
	// correct.
	text := "hi\n\nthis paragraph says hi again and keeps going"

	records := c.ChunkTextWithPages(text, SinglePageRecord(text))
	for _, record := range records {
		if got := text[record.CharStart:record.CharEnd]; got != record.Text {
			t.Errorf("span [%d,%d) resolves to %q, want %q",
				record.CharStart, record.CharEnd, got, record.Text)
		}
		if len(strings.TrimSpace(record.Text)) <= 5 {
			t.Errorf("short chunk %q should have been dropped", record.Text)
		}
	}
}

func TestPagesForSpanBoundaryTouch(t *testing.T) {
	pages := []types.PageRecord{
		{PageNumber: 1, CharStart: 0, CharEnd: 10},
		{PageNumber: 2, CharStart: 12, CharEnd: 20},
	}

	tests := []struct {
		name       string
		start, end int
		want       []int
	}{
		{"inside first page", 0, 5, []int{1}},
		{"touches first page end only", 10, 12, nil},
		{"straddles both pages", 5, 15, []int{1, 2}},
		{"inside second page", 13, 20, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagesForSpan(tt.start, tt.end, pages)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pagesForSpan(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
