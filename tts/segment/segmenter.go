// Package segment cleans extracted page text and splits it into an ordered
// sequence of speakable phrases tagged with a detected language.
package segment

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Phrase is one sentence-like unit of page text, the atomic unit of both
// synthesis and playback. Index is the stable ordering key for the rest of
// the pipeline.
type Phrase struct {
	Index    int
	Text     string
	Language string
}

// Tokenizer splits cleaned text into sentences for one language.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Cleaning patterns: bracketed annotations, hyphen-broken line wraps, and
// newline runs.
var (
	annotationRegex = regexp.MustCompile(`\[.*?\]|\(.*?\)`)
	hyphenWrapRegex = regexp.MustCompile(`-\n`)
	newlineRegex    = regexp.MustCompile(`\n+`)
)

// Segmenter splits page text into phrases using a per-language registry of
// sentence tokenizers, falling back to a punctuation scan for languages
// without a registered model.
type Segmenter struct {
	fallbackLang string

	mu     sync.RWMutex
	models map[string]Tokenizer
}

// New creates a Segmenter that falls back to fallbackLang when language
// detection is unreliable. The English sentence model is registered by
// default; more can be added with Register.
func New(fallbackLang string) *Segmenter {
	s := &Segmenter{
		fallbackLang: fallbackLang,
		models:       make(map[string]Tokenizer),
	}
	if tok, err := english.NewSentenceTokenizer(nil); err == nil {
		s.models["en"] = punktTokenizer{tok}
	}
	return s
}

// Register adds a sentence tokenizer for a language code.
func (s *Segmenter) Register(lang string, t Tokenizer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[lang] = t
}

// Segment cleans raw page text and splits it into ordered phrases. It
// returns a nil slice when the cleaned text is empty, signaling that the
// page has nothing to process.
func (s *Segmenter) Segment(raw string) ([]Phrase, string) {
	text := CleanText(raw)
	if text == "" {
		return nil, s.fallbackLang
	}

	lang := s.DetectLanguage(text)

	var parts []string
	s.mu.RLock()
	tok, ok := s.models[lang]
	s.mu.RUnlock()
	if ok {
		parts = tok.Tokenize(text)
	}
	if len(parts) == 0 {
		parts = fallbackSplit(text)
	}

	phrases := make([]Phrase, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		phrases = append(phrases, Phrase{
			Index:    len(phrases),
			Text:     part,
			Language: lang,
		})
	}
	return phrases, lang
}

// DetectLanguage detects the language of cleaned text. Detection is
// best-effort: an unreliable result falls back to the configured default.
func (s *Segmenter) DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return s.fallbackLang
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return s.fallbackLang
	}
	return code
}

// CleanText normalizes extracted page text: bracketed and parenthetical
// annotations are replaced with a space, hyphen-broken line wraps rejoined,
// and newline runs collapsed to single spaces.
func CleanText(raw string) string {
	text := annotationRegex.ReplaceAllString(raw, " ")
	text = hyphenWrapRegex.ReplaceAllString(text, "")
	text = newlineRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// fallbackSplit breaks text after runs of sentence-ending punctuation
// followed by whitespace. Non-empty input always yields at least one part.
func fallbackSplit(text string) []string {
	var parts []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		// Collect the whole punctuation run.
		end := i + 1
		for end < len(runes) && isSentenceEnd(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		parts = append(parts, string(runes[start:end]))
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		start = end
		i = end - 1
	}

	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}
	return parts
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// punktTokenizer adapts a neurosnap sentence tokenizer to the registry.
type punktTokenizer struct {
	t *sentences.DefaultSentenceTokenizer
}

func (p punktTokenizer) Tokenize(text string) []string {
	sents := p.t.Tokenize(text)
	out := make([]string, 0, len(sents))
	for _, sent := range sents {
		if trimmed := strings.TrimSpace(sent.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
