// Package trainstats holds pre-aggregated training-split statistics that
// training-set-dependent features are computed against, keyed by the
// identifier of the split they were aggregated from.
package trainstats

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Bundle is the statistics of one training split.
type Bundle struct {
	Split           string          `yaml:"-"`
	Vocabulary      map[string]int  `yaml:"vocabulary"`
	LengthFrequency map[int]float64 `yaml:"length_frequency"`
	FrequencyRank   map[string]int  `yaml:"frequency_rank"`
}

// Rank returns the frequency rank of token, or the vocabulary size plus one
// for tokens never seen during training.
func (b *Bundle) Rank(token string) int {
	if r, ok := b.FrequencyRank[token]; ok {
		return r
	}
	return len(b.FrequencyRank) + 1
}

// Set maps split identifiers to bundles.
type Set map[string]*Bundle

// Lookup returns the bundle for split, if one exists and is non-empty.
func (s Set) Lookup(split string) (*Bundle, bool) {
	if s == nil || split == "" {
		return nil, false
	}
	b, ok := s[split]
	return b, ok && b != nil
}

// Build aggregates a bundle from tokenized training samples. Ranks are dense
// and 1-based; tokens with equal counts are ranked lexically so the result is
// independent of input order.
func Build(split string, tokenized [][]string) *Bundle {
	b := &Bundle{
		Split:           split,
		Vocabulary:      make(map[string]int),
		LengthFrequency: make(map[int]float64),
		FrequencyRank:   make(map[string]int),
	}
	if len(tokenized) == 0 {
		return b
	}

	lengths := make(map[int]int)
	for _, tokens := range tokenized {
		lengths[len(tokens)]++
		for _, tok := range tokens {
			b.Vocabulary[tok]++
		}
	}
	for l, n := range lengths {
		b.LengthFrequency[l] = float64(n) / float64(len(tokenized))
	}

	words := make([]string, 0, len(b.Vocabulary))
	for w := range b.Vocabulary {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		ci, cj := b.Vocabulary[words[i]], b.Vocabulary[words[j]]
		if ci != cj {
			return ci > cj
		}
		return words[i] < words[j]
	})
	for i, w := range words {
		b.FrequencyRank[w] = i + 1
	}
	return b
}

type fileRoot struct {
	Splits map[string]*Bundle `yaml:"splits"`
}

// LoadFile reads a YAML statistics file of the form
//
//	splits:
//	  sst2/train:
//	    vocabulary: {...}
//	    length_frequency: {...}
//	    frequency_rank: {...}
func LoadFile(path string) (Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics file %s: %w", path, err)
	}
	var root fileRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to decode statistics file %s: %w", path, err)
	}
	set := make(Set, len(root.Splits))
	for split, b := range root.Splits {
		if b == nil {
			continue
		}
		b.Split = split
		set[split] = b
	}
	return set, nil
}

// WriteFile serializes the set in the format LoadFile reads.
func (s Set) WriteFile(path string) error {
	out, err := yaml.Marshal(fileRoot{Splits: s})
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
