// Package rfq implements the chunk-and-merge extraction pipeline: split a
// document into bounded chunks, extract a partial RFQ record from each chunk
// concurrently, and fold the partials into one final record in chunk order.
package rfq

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/rfqrocket/internal/models"
)

// DefaultMaxChunkLength is the chunk bound, in characters, used when none is configured.
const DefaultMaxChunkLength = 5000

// Split cuts text into chunks of whole lines. A chunk is closed when adding the
// next line would push the sum of its line lengths past maxLength; the "\n"
// separators are not counted. A single line longer than maxLength becomes its
// own oversized chunk and is never split. Joining the chunk contents with "\n"
// reproduces text exactly.
func Split(text string, maxLength int) []models.Chunk {
	if text == "" {
		return nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxChunkLength
	}

	var (
		chunks  []models.Chunk
		current []string
		length  int
	)
	flush := func() {
		content := strings.Join(current, "\n")
		chunks = append(chunks, models.Chunk{
			Index:        len(chunks),
			Content:      content,
			ApproxLength: length,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if len(current) > 0 && length+n > maxLength {
			flush()
			current = []string{line}
			length = n
			continue
		}
		current = append(current, line)
		length += n
	}
	if len(current) > 0 {
		flush()
	}
	return chunks
}
