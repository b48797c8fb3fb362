package prompts

import (
	"errors"
	"math"
	"regexp"
	"strconv"
)

// DefaultChunkSize is used when a workflow description names no batch size.
const DefaultChunkSize = 4

// MaxSections caps every section target, whether it was parsed from instructions
// or derived from the duration.
const MaxSections = 60

// "12 parts", "10 dramatic chapters", "8 частин".
var sectionCountPattern = regexp.MustCompile(`(?i)(\d+)\s*([a-zA-Zа-яА-ЯіїєґІЇЄҐ]+)?\s*(parts|sections|chapters|частин|розділів|структур)`)

// "in batches of 5 parts", "по 3 частин".
var chunkSizePattern = regexp.MustCompile(`(?i)(?:по|batches of|groups of)\s*(\d+)\s*(?:частин|parts)`)

// ParseSectionCount finds an explicit section count in free-text instructions.
// It is a best-effort heuristic: ok is false when nothing usable is found.
// Counts above MaxSections, including ones too large for an int, are clamped.
func ParseSectionCount(instructions string) (count int, ok bool) {
	m := sectionCountPattern.FindStringSubmatch(instructions)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if errors.Is(err, strconv.ErrRange) {
		return MaxSections, true
	}
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, MaxSections), true
}

// ParseChunkSize reads the structure chunk size from a niche workflow description.
func ParseChunkSize(workflow string) (size int, ok bool) {
	m := chunkSizePattern.FindStringSubmatch(workflow)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ChunkSize returns the chunk size named by workflow, else fallback, else DefaultChunkSize.
func ChunkSize(workflow string, fallback int) int {
	if n, ok := ParseChunkSize(workflow); ok {
		return n
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultChunkSize
}

// SectionTarget returns the number of structure sections to request: the explicit
// count from instructions if present, else max(3, ceil(duration/3)) with a 10 minute
// default duration.
func SectionTarget(instructions string, durationMinutes float64) int {
	if n, ok := ParseSectionCount(instructions); ok {
		return n
	}
	if durationMinutes <= 0 {
		durationMinutes = 10
	}
	n := math.Ceil(durationMinutes / 3)
	if n < 3 {
		return 3
	}
	if n > MaxSections {
		return MaxSections
	}
	return int(n)
}
