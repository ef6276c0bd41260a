package services

import (
	"strings"
	"unicode"

	"alfredoptarigan/cv-ranker/internal/models"
)

// charsPerToken approximates the tokenizer of the embedding model.
const charsPerToken = 4

type TextChunker interface {
	Split(text string) []models.Chunk
}

type textChunker struct {
	window  int
	overlap int
}

// NewTextChunker sizes windows in tokens. Invalid sizes fall back to
// 800 tokens with a 15% overlap.
func NewTextChunker(chunkTokens, overlapTokens int) TextChunker {
	if chunkTokens <= 0 {
		chunkTokens = 800
	}
	if overlapTokens < 0 || overlapTokens*2 >= chunkTokens {
		overlapTokens = chunkTokens * 15 / 100
	}

	return &textChunker{
		window:  chunkTokens * charsPerToken,
		overlap: overlapTokens * charsPerToken,
	}
}

// Split implements TextChunker. Chunk i shares its first Overlap runes with
// the end of chunk i-1, so chunk 0 followed by every later chunk minus its
// overlap prefix is the original text.
func (tc *textChunker) Split(text string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	if total <= tc.window {
		return []models.Chunk{{Text: text}}
	}

	var chunks []models.Chunk
	start, prevEnd := 0, 0

	for {
		end := start + tc.window
		if end >= total {
			end = total
		} else {
			end = tc.cutPoint(runes, start, end)
		}

		chunks = append(chunks, models.Chunk{
			Text:       string(runes[start:end]),
			ChunkIndex: len(chunks),
			Overlap:    prevEnd - start,
		})

		if end == total {
			break
		}

		next := end - tc.overlap
		for next < end && next > 0 && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		if next <= start {
			next = end
		}

		prevEnd = end
		start = next
	}

	return chunks
}

// cutPoint picks where a window ending at limit should stop: after the last
// sentence end in the second half of the window, else after the last
// whitespace there, else at limit.
func (tc *textChunker) cutPoint(runes []rune, start, limit int) int {
	floor := start + tc.window/2

	for i := limit - 1; i > floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
		if unicode.IsSpace(runes[i]) && isSentenceEnd(runes[i-1]) {
			return i + 1
		}
	}

	for i := limit - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return limit
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
