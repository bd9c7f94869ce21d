// Package script turns an uploaded documentary script into numbered lines
// the review stages can cite.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrEmpty is returned when a script has no usable text.
var ErrEmpty = errors.New("script: no text")

// Format is the detected input format.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
	FormatSRT      Format = "srt"
)

// wordsPerMinute is a typical narration pace, used for runtime estimates.
const wordsPerMinute = 150

// Line is one non-blank script line.
type Line struct {
	Number  int    `json:"number"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// Script is the parsed document.
type Script struct {
	Title     string   `json:"title"`
	Format    Format   `json:"format"`
	Lines     []Line   `json:"lines"`
	Speakers  []string `json:"speakers,omitempty"`
	People    []string `json:"people,omitempty"`
	WordCount int      `json:"word_count"`
}

// RuntimeMinutes estimates narration length.
func (s *Script) RuntimeMinutes() float64 {
	return float64(s.WordCount) / wordsPerMinute
}

// Numbered renders the script as "N: [SPEAKER] text" lines for prompts.
func (s *Script) Numbered() string {
	var b strings.Builder
	for _, l := range s.Lines {
		b.WriteString(strconv.Itoa(l.Number))
		b.WriteString(": ")
		if l.Speaker != "" {
			b.WriteString(l.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

var (
	srtIndex     = regexp.MustCompile(`^\d+$`)
	srtTimestamp = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}[,.]\d{3}`)
	speakerLine  = regexp.MustCompile(`^([A-Z][A-Z0-9 .'\-]{1,40}|\[[^\]]{1,40}\]|\([^)]{1,40}\)):\s*(.*)$`)
	mdDecoration = regexp.MustCompile(`^(#{1,6}\s+|[-*+]\s+|>\s*)`)
	properName   = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+(?:[A-Z]\.|[A-Z][a-z]+|de|van|von|al|bin)){1,3})\b`)
)

// sentenceStarters are capitalised words that begin name-like runs but are
// not names.
var sentenceStarters = map[string]bool{
	"The": true, "This": true, "That": true, "But": true, "And": true, "When": true,
	"In": true, "On": true, "At": true, "After": true, "Before": true, "Then": true,
	"Narrator": true, "According": true, "Police": true, "Court": true,
}

// Parse reads text in the given format, or detects it when format is empty.
func Parse(title, text string, format Format) (*Script, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}
	if format == "" {
		format = Detect(text)
	}

	s := &Script{Title: strings.TrimSpace(title), Format: format}
	speakers := make(map[string]bool)
	n := 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch format {
		case FormatSRT:
			if srtIndex.MatchString(line) || srtTimestamp.MatchString(line) {
				continue
			}
			line = stripTags(line)
		case FormatMarkdown:
			line = strings.TrimSpace(mdDecoration.ReplaceAllString(line, ""))
			line = strings.NewReplacer("**", "", "__", "", "`", "").Replace(line)
		}
		if line == "" {
			continue
		}

		n++
		l := Line{Number: n, Text: line}
		if m := speakerLine.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[2]) != "" {
			l.Speaker = strings.Trim(m[1], "[]()")
			l.Text = strings.TrimSpace(m[2])
			speakers[l.Speaker] = true
		}
		s.Lines = append(s.Lines, l)
		s.WordCount += len(strings.Fields(l.Text))
	}
	if len(s.Lines) == 0 {
		return nil, fmt.Errorf("%w after removing %s markup", ErrEmpty, format)
	}
	if s.Title == "" {
		s.Title = firstWords(s.Lines[0].Text, 8)
	}

	s.Speakers = sortedKeys(speakers)
	s.People = extractPeople(s.Lines)
	return s, nil
}

// Detect guesses the format from the first lines of text.
func Detect(text string) Format {
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 6)
	if len(lines) >= 2 && srtIndex.MatchString(strings.TrimSpace(lines[0])) &&
		srtTimestamp.MatchString(strings.TrimSpace(lines[1])) {
		return FormatSRT
	}
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			return FormatMarkdown
		}
	}
	return FormatPlain
}

// FormatFromExt maps a file extension to a format; unknown extensions
// return "" so Parse detects.
func FormatFromExt(ext string) Format {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "srt", "vtt":
		return FormatSRT
	case "md", "markdown":
		return FormatMarkdown
	case "txt", "text":
		return FormatPlain
	}
	return ""
}

// extractPeople collects capitalised multi-word names mentioned at least
// once, in order of first appearance.
func extractPeople(lines []Line) []string {
	seen := make(map[string]bool)
	var people []string
	for _, l := range lines {
		for _, m := range properName.FindAllStringSubmatch(l.Text, -1) {
			name := m[1]
			first := strings.Fields(name)[0]
			if sentenceStarters[first] {
				rest := strings.TrimSpace(strings.TrimPrefix(name, first))
				if len(strings.Fields(rest)) < 2 {
					continue
				}
				name = rest
			}
			if !seen[name] {
				seen[name] = true
				people = append(people, name)
			}
		}
	}
	return people
}

func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
