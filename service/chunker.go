package service

import (
	"log"
	"sort"
	"strings"

	"github.com/tieubaoca/embedding-be/types"
)

// defaultSeparators are tried in order, from the most structural break
// to a raw character split.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits document text into bounded, overlapping chunks. The
// same input always produces the same chunks.
type Chunker struct {
	chunkSize      int
	chunkOverlap   int
	minChunkLength int
	separators     []string
}

func NewChunker(config types.DocumentServiceConfig) *Chunker {
	return &Chunker{
		chunkSize:      config.ChunkSize,
		chunkOverlap:   config.ChunkOverlap,
		minChunkLength: config.MinChunkLength,
		separators:     defaultSeparators,
	}
}

// ChunkText splits text into chunks of at most chunkSize bytes with
// chunkOverlap bytes of overlap between neighbors. Chunks whose
// trimmed length is at or below minChunkLength are dropped.
func (c *Chunker) ChunkText(text string) []string {
	chunks := c.splitText(text, c.separators)
	filtered := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(strings.TrimSpace(chunk)) > c.minChunkLength {
			filtered = append(filtered, chunk)
		}
	}
	return filtered
}

// ChunkTextWithPages splits the concatenated page text and resolves
// every surviving chunk to its byte span and the pages it overlaps.
// Short chunks are skipped but still advance the span cursor, so a
// repeated fragment later in the document cannot steal their offsets.
func (c *Chunker) ChunkTextWithPages(text string, pages []types.PageRecord) []types.ChunkRecord {
	chunks := c.splitText(text, c.separators)
	records := make([]types.ChunkRecord, 0, len(chunks))

	searchFrom := 0
	prevStart := -1
	for _, chunk := range chunks {
		start := c.locateChunk(text, chunk, searchFrom, prevStart)
		if start < 0 {
			log.Printf("could not locate chunk in source text, skipping: %.40q", chunk)
			continue
		}
		end := start + len(chunk)
		prevStart = start
		searchFrom = end

		if len(strings.TrimSpace(chunk)) <= c.minChunkLength {
			continue
		}
		records = append(records, types.ChunkRecord{
			Text:      chunk,
			Pages:     pagesForSpan(start, end, pages),
			CharStart: start,
			CharEnd:   end,
		})
	}
	return records
}

// locateChunk finds the start offset of chunk in text. The first scan
// starts where the previous chunk ended; overlapping chunks begin
// before that point, so a miss triggers a rescan from just past the
// previous chunk's start. Starts are strictly increasing, so the
// cursor never moves backward.
func (c *Chunker) locateChunk(text, chunk string, searchFrom, prevStart int) int {
	if idx := strings.Index(text[searchFrom:], chunk); idx >= 0 {
		return searchFrom + idx
	}
	from := prevStart + 1
	if from < 0 {
		from = 0
	}
	if from > len(text) {
		from = len(text)
	}
	if idx := strings.Index(text[from:], chunk); idx >= 0 {
		return from + idx
	}
	return -1
}

// pagesForSpan returns the sorted page numbers whose intervals overlap
// [start, end). Interval overlap is half-open on both sides: a chunk
// that only touches a page boundary does not belong to that page.
func pagesForSpan(start, end int, pages []types.PageRecord) []int {
	var result []int
	for _, page := range pages {
		if start < page.CharEnd && end > page.CharStart {
			result = append(result, page.PageNumber)
		}
	}
	sort.Ints(result)
	return result
}

// splitText recursively splits text with the first separator it
// contains, then merges the pieces back into chunks of at most
// chunkSize. Pieces still longer than chunkSize recurse with the
// remaining separators.
func (c *Chunker) splitText(text string, separators []string) []string {
	var final []string

	separator := separators[len(separators)-1]
	var nextSeparators []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			nextSeparators = separators[i+1:]
			break
		}
	}

	splits := splitWithSeparator(text, separator)

	var goodSplits []string
	for _, s := range splits {
		if len(s) < c.chunkSize {
			goodSplits = append(goodSplits, s)
			continue
		}
		if len(goodSplits) > 0 {
			final = append(final, c.mergeSplits(goodSplits, separator)...)
			goodSplits = nil
		}
		if len(nextSeparators) == 0 {
			final = append(final, s)
		} else {
			final = append(final, c.splitText(s, nextSeparators)...)
		}
	}
	if len(goodSplits) > 0 {
		final = append(final, c.mergeSplits(goodSplits, separator)...)
	}
	return final
}

// splitWithSeparator splits on separator and drops empty pieces. The
// empty separator splits into individual runes so multi-byte
// characters stay intact.
func splitWithSeparator(text, separator string) []string {
	var splits []string
	if separator == "" {
		for _, r := range text {
			splits = append(splits, string(r))
		}
		return splits
	}
	for _, s := range strings.Split(text, separator) {
		if s != "" {
			splits = append(splits, s)
		}
	}
	return splits
}

// mergeSplits greedily packs consecutive splits into chunks no longer
// than chunkSize, carrying roughly chunkOverlap bytes of trailing
// splits into the next chunk.
func (c *Chunker) mergeSplits(splits []string, separator string) []string {
	sepLen := len(separator)

	var docs []string
	var current []string
	total := 0

	for _, d := range splits {
		l := len(d)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+l+extra > c.chunkSize {
			if total > c.chunkSize {
				log.Printf("created a chunk of size %d, which is longer than the limit of %d", total, c.chunkSize)
			}
			if len(current) > 0 {
				if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
					docs = append(docs, doc)
				}
				// Shed leading splits until the carried tail fits the
				// overlap and leaves room for the incoming split.
				for total > c.chunkOverlap || (total+l+extra > c.chunkSize && total > 0) {
					total -= len(current[0])
					if len(current) > 1 {
						total -= sepLen
					}
					current = current[1:]
					extra = 0
					if len(current) > 0 {
						extra = sepLen
					}
				}
			}
		}
		current = append(current, d)
		total += l
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
