package services

import (
	"strings"
	"unicode/utf8"
)

// TextChunker splits long CV text into embedding-sized pieces.
type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs paragraphs into chunks of at most maxChunkSize runes.
// Oversized paragraphs are packed sentence by sentence and a sentence that
// is still too long is cut. Each chunk after the first starts with the
// last overlap runes of its predecessor.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= maxChunkSize {
			units = append(units, para)
			continue
		}
		for _, sentence := range splitIntoSentences(para) {
			units = append(units, cutRunes(sentence, maxChunkSize-overlap)...)
		}
	}

	var chunks []string
	var current strings.Builder
	size := 0
	for _, unit := range units {
		n := utf8.RuneCountInString(unit)
		if size > 0 && size+n+1 > maxChunkSize {
			prev := current.String()
			chunks = append(chunks, prev)
			current.Reset()
			size = 0
			tail := getLastNChars(prev, overlap)
			if tail != "" && utf8.RuneCountInString(tail)+n+1 <= maxChunkSize {
				current.WriteString(tail)
				size = utf8.RuneCountInString(tail)
			}
		}
		if size > 0 {
			current.WriteString(" ")
			size++
		}
		current.WriteString(unit)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func cutRunes(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	runes := []rune(text)
	var parts []string
	for len(runes) > size {
		parts = append(parts, string(runes[:size]))
		runes = runes[size:]
	}
	return append(parts, string(runes))
}

func getLastNChars(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
