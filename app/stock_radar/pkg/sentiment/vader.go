package sentiment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonreiter/govader"
)

// VaderScorer 基于 VADER 的极性打分，取 compound 分数，范围 [-1, 1]
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer 创建 VADER 打分器，词典随包加载，可并发使用
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity 实现 Scorer
func (s *VaderScorer) Polarity(text string) (float64, error) {
	if !utf8.ValidString(text) {
		return 0, ErrInvalidText
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return clamp(s.analyzer.PolarityScores(text).Compound), nil
}

// NewScorer 按名称创建打分器，空串默认 vader
func NewScorer(name string) (Scorer, error) {
	switch name {
	case "", "vader":
		return NewVaderScorer(), nil
	case "lexicon":
		return NewLexiconScorer(), nil
	default:
		return nil, fmt.Errorf("unknown sentiment scorer: %s", name)
	}
}
