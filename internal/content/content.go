package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed data/*.json
var files embed.FS

// Prompt is an either-or choice pair.
type Prompt struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Question is a multiple-choice quiz entry. Answer indexes Options.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Puzzle is a hidden phrase for spin-and-guess rounds.
type Puzzle struct {
	Category string `json:"category"`
	Phrase   string `json:"phrase"`
}

// Catalog is the read-only content engines draw from.
type Catalog struct {
	Prompts   []Prompt
	Questions []Question
	Words     []string
	Puzzles   []Puzzle
	Colors    []string
}

// Load parses the embedded catalogs.
func Load() (*Catalog, error) {
	c := &Catalog{}
	for name, dst := range map[string]any{
		"prompts.json":   &c.Prompts,
		"questions.json": &c.Questions,
		"words.json":     &c.Words,
		"puzzles.json":   &c.Puzzles,
		"colors.json":    &c.Colors,
	} {
		b, err := files.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if err := json.Unmarshal(b, dst); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustLoad is Load for process start-up and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) validate() error {
	switch {
	case len(c.Prompts) == 0:
		return fmt.Errorf("content: no prompts")
	case len(c.Questions) == 0:
		return fmt.Errorf("content: no questions")
	case len(c.Words) == 0:
		return fmt.Errorf("content: no words")
	case len(c.Puzzles) == 0:
		return fmt.Errorf("content: no puzzles")
	case len(c.Colors) < 2:
		return fmt.Errorf("content: need at least two colors")
	}
	for i, q := range c.Questions {
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return fmt.Errorf("content: question %d answer out of range", i)
		}
	}
	for i := range c.Words {
		c.Words[i] = strings.ToLower(c.Words[i])
	}
	for i := range c.Puzzles {
		c.Puzzles[i].Phrase = strings.ToUpper(c.Puzzles[i].Phrase)
	}
	return nil
}
