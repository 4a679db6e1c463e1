package textfeatures

import (
	"errors"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/vk/bucketgrid/internal/operation"
)

// ErrNoStatistics is returned by operations that need a training-set
// statistics bundle when none was supplied.
var ErrNoStatistics = errors.New("no training statistics")

func text(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected text, got %T", value)
	}
	return s, nil
}

// GetLength counts whitespace-separated tokens.
func GetLength(value any, res operation.Resources) (operation.Output, error) {
	s, err := text(value)
	if err != nil {
		return nil, err
	}
	return operation.Output{"length": len(strings.Fields(s))}, nil
}

// Lowercase returns the lowercased text.
func Lowercase(value any, res operation.Resources) (operation.Output, error) {
	s, err := text(value)
	if err != nil {
		return nil, err
	}
	return operation.Output{"text_lower": strings.ToLower(s)}, nil
}

// Truncate keeps the first max_tokens tokens.
func Truncate(value any, res operation.Resources) (operation.Output, error) {
	s, err := text(value)
	if err != nil {
		return nil, err
	}
	limit, err := countResource(res.Config, "max_tokens", 64)
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(s)
	if len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return operation.Output{"text_truncated": strings.Join(tokens, " ")}, nil
}

// VocabularySize counts distinct tokens across the column.
func VocabularySize(column []any, res operation.Resources) (operation.Output, error) {
	seen := make(map[string]struct{})
	for _, v := range column {
		s, err := text(v)
		if err != nil {
			return nil, err
		}
		for _, tok := range strings.Fields(s) {
			seen[tok] = struct{}{}
		}
	}
	return operation.Output{"vocabulary_size": len(seen)}, nil
}

// AverageLength is the mean token count across the column.
func AverageLength(column []any, res operation.Resources) (operation.Output, error) {
	lengths := make(stats.Float64Data, 0, len(column))
	for _, v := range column {
		s, err := text(v)
		if err != nil {
			return nil, err
		}
		lengths = append(lengths, float64(len(strings.Fields(s))))
	}
	mean, err := stats.Mean(lengths)
	if err != nil {
		return nil, fmt.Errorf("average length: %w", err)
	}
	return operation.Output{"average_length": mean}, nil
}

// FrequencyRank is the mean training-set frequency rank of the sample's
// tokens. Unseen tokens rank after every known token.
func FrequencyRank(value any, res operation.Resources) (operation.Output, error) {
	if res.Stats == nil {
		return nil, ErrNoStatistics
	}
	s, err := text(value)
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return operation.Output{"fre_rank": 0.0}, nil
	}
	ranks := make(stats.Float64Data, len(tokens))
	for i, tok := range tokens {
		ranks[i] = float64(res.Stats.Rank(tok))
	}
	mean, err := ranks.Mean()
	if err != nil {
		return nil, err
	}
	return operation.Output{"fre_rank": mean}, nil
}

// LabelAgreement compares the two label fields named by the true_field and
// predicted_field resources.
func LabelAgreement(sample map[string]any, res operation.Resources) (operation.Output, error) {
	trueField := stringResource(res.Config, "true_field", "true_label")
	predField := stringResource(res.Config, "predicted_field", "predicted_label")
	t, ok := sample[trueField]
	if !ok {
		return nil, fmt.Errorf("missing field %q", trueField)
	}
	p, ok := sample[predField]
	if !ok {
		return nil, fmt.Errorf("missing field %q", predField)
	}
	if fmt.Sprint(t) == fmt.Sprint(p) {
		return operation.Output{"agreement": "correct"}, nil
	}
	return operation.Output{"agreement": "incorrect"}, nil
}

// countResource reads a non-negative whole-number resource.
func countResource(cfg map[string]any, key string, def int) (int, error) {
	v, ok := cfg[key]
	if !ok {
		return def, nil
	}
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("resource %q must be a whole number, got %v", key, x)
		}
		n = int(x)
	default:
		return 0, fmt.Errorf("resource %q must be a number, got %T", key, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("resource %q must not be negative, got %d", key, n)
	}
	return n, nil
}

func stringResource(cfg map[string]any, key, def string) string {
	if s, ok := cfg[key].(string); ok && s != "" {
		return s
	}
	return def
}
