package drawguess

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
)

// Pool holds the word lists, bucketed by language then difficulty. The pool
// is read-only after load and shared by every room.
type Pool struct {
	buckets map[string]map[string][]string
}

type wordFile struct {
	Languages map[string]map[string][]string `json:"languages"`
}

// LoadWords reads a word file. Layout:
// {"languages": {"en": {"easy": [...], "medium": [...], "hard": [...]}}}
func LoadWords(path string) (*Pool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file wordFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	for _, byDifficulty := range file.Languages {
		for _, words := range byDifficulty {
			if len(words) > 0 {
				return &Pool{buckets: file.Languages}, nil
			}
		}
	}
	return nil, errors.New("word list is empty")
}

// DefaultWords is the built-in English list used when no word file is
// configured, and by tests.
func DefaultWords() *Pool {
	return &Pool{buckets: map[string]map[string][]string{
		"en": {
			"easy": {
				"house", "apple", "chair", "pizza", "cloud", "train",
				"shark", "robot", "ghost", "candle", "bridge", "planet",
				"guitar", "rocket", "castle", "dragon", "turtle", "rainbow",
			},
			"medium": {
				"lighthouse", "telescope", "waterfall", "snowman", "campfire",
				"submarine", "jellyfish", "scarecrow", "treehouse", "volcano",
				"parachute", "windmill", "tornado", "pyramid", "octopus",
			},
			"hard": {
				"constellation", "archaeologist", "metamorphosis", "kaleidoscope",
				"procrastination", "photosynthesis", "thunderstorm", "marionette",
			},
		},
	}}
}

// Pick returns up to n distinct words from the given bucket, excluding the
// already-used set. If the bucket is missing it falls back to any difficulty
// in the language, then to English easy.
func (p *Pool) Pick(language, difficulty string, n int, used map[string]bool) []string {
	candidates := p.bucket(language, difficulty)
	available := make([]string, 0, len(candidates))
	for _, word := range candidates {
		if !used[word] {
			available = append(available, word)
		}
	}
	if len(available) < n {
		// Anti-repeat resets once the bucket is consumed.
		available = append([]string(nil), candidates...)
	}
	rand.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	if len(available) > n {
		available = available[:n]
	}
	return available
}

func (p *Pool) bucket(language, difficulty string) []string {
	if byDifficulty, ok := p.buckets[language]; ok {
		if words, ok := byDifficulty[difficulty]; ok && len(words) > 0 {
			return words
		}
		for _, words := range byDifficulty {
			if len(words) > 0 {
				return words
			}
		}
	}
	if byDifficulty, ok := p.buckets["en"]; ok {
		if words, ok := byDifficulty["easy"]; ok {
			return words
		}
	}
	return nil
}
