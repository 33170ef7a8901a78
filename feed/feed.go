package feed

import (
	"encoding/json"
	"fmt"
	"os"
)

// Question is a single trivia record. Records are immutable once loaded.
type Question struct {
	ID       int    `json:"id"`
	Category string `json:"category,omitempty"`
	Prompt   string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source,omitempty"`
}

// Feed holds the per-round question pools. It is loaded once at startup and
// never written afterwards, so it is safe to share between lobbies.
type Feed struct {
	roundOne []Question
	roundTwo []Question
}

type feedFile struct {
	RoundOne []Question `json:"roundOne"`
	RoundTwo []Question `json:"roundTwo"`
}

// Load reads the question file at path.
func Load(path string) (*Feed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open question file %s: %w", path, err)
	}
	defer file.Close()

	var parsed feedFile
	if err := json.NewDecoder(file).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse question file %s: %w", path, err)
	}

	if len(parsed.RoundOne) == 0 {
		return nil, fmt.Errorf("question file %s has no round one questions", path)
	}

	return &Feed{roundOne: parsed.RoundOne, roundTwo: parsed.RoundTwo}, nil
}

// New builds a feed from in-memory pools. Used by tests and seeds.
func New(roundOne, roundTwo []Question) *Feed {
	f := &Feed{
		roundOne: make([]Question, len(roundOne)),
		roundTwo: make([]Question, len(roundTwo)),
	}
	copy(f.roundOne, roundOne)
	copy(f.roundTwo, roundTwo)
	return f
}

// RoundOne returns a copy of the round one pool. Callers own the copy and may
// shuffle or truncate it freely.
func (f *Feed) RoundOne() []Question {
	out := make([]Question, len(f.roundOne))
	copy(out, f.roundOne)
	return out
}

// RoundTwoSize reports how many round two questions are available.
func (f *Feed) RoundTwoSize() int {
	return len(f.roundTwo)
}

// RoundTwo returns the round two question at index i.
func (f *Feed) RoundTwo(i int) Question {
	return f.roundTwo[i]
}
