package app

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// ParagraphSource supplies the reference text for a new round
type ParagraphSource interface {
	PickParagraph() string
}

// DefaultParagraphs is the built-in corpus used when no file is configured
var DefaultParagraphs = []string{
	"The quick brown fox jumps over the lazy dog while the farmer watches from the porch, wondering how many times this sentence has been typed by people testing their keyboards.",
	"Typing quickly is less about moving your fingers fast and more about never stopping. Steady rhythm beats bursts of speed followed by a long pause to fix mistakes.",
	"The lighthouse keeper climbed the spiral stairs every evening at dusk, counting one hundred and twelve steps before reaching the lamp that guided ships past the rocks.",
	"A good cup of coffee needs fresh beans, clean water at the right temperature, and a little patience. Rushing the brew rarely saves any time in the end.",
	"Mountains do not rise without earthquakes. Every range on the map is the result of slow and violent forces pressing continents together over millions of years.",
	"She opened the old notebook and found her grandmother's recipes written in pencil, each page stained with flour and butter from decades of Sunday baking.",
	"Programs must be written for people to read, and only incidentally for machines to execute. Clear names and small functions make code easier to change later.",
	"The night market filled the narrow street with the smell of grilled corn, the sound of sizzling oil, and the bright glow of paper lanterns strung between the stalls.",
	"Rain fell steadily on the tin roof of the cabin, and the hikers played cards by candlelight, grateful they had reached shelter before the storm reached the valley.",
	"Every expert was once a beginner who refused to quit. Practice a little every day and the hardest passages will soon feel as natural as writing your own name.",
}

// StaticParagraphs picks uniformly from a fixed corpus, avoiding an
// immediate repeat when the corpus has more than one entry.
type StaticParagraphs struct {
	paragraphs []string
	last       string
	mu         sync.Mutex
}

// NewStaticParagraphs creates a source over the given paragraphs, falling
// back to DefaultParagraphs when none are non-empty.
func NewStaticParagraphs(paragraphs []string) *StaticParagraphs {
	cleaned := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		cleaned = DefaultParagraphs
	}
	return &StaticParagraphs{paragraphs: cleaned}
}

// PickParagraph returns a random paragraph
func (s *StaticParagraphs) PickParagraph() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.paragraphs[rand.Intn(len(s.paragraphs))]
	for attempts := 0; p == s.last && len(s.paragraphs) > 1 && attempts < 100; attempts++ {
		p = s.paragraphs[rand.Intn(len(s.paragraphs))]
	}
	s.last = p
	return p
}

// Len returns the corpus size
func (s *StaticParagraphs) Len() int {
	return len(s.paragraphs)
}

// LoadParagraphs reads a corpus file with a top-level "paragraphs" list
// (YAML, JSON or TOML, by extension). An empty path yields the default corpus.
func LoadParagraphs(path string) (*StaticParagraphs, error) {
	if path == "" {
		return NewStaticParagraphs(nil), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read paragraphs file: %w", err)
	}

	paragraphs := v.GetStringSlice("paragraphs")
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("paragraphs file %s has no paragraphs", path)
	}

	return NewStaticParagraphs(paragraphs), nil
}
