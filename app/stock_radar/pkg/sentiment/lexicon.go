package sentiment

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexicon 词语极性，取值 [-1, 1]
var lexicon = map[string]float64{
	"good": 0.7, "great": 0.8, "excellent": 1.0, "best": 1.0, "better": 0.5,
	"positive": 0.23, "strong": 0.43, "stronger": 0.45, "solid": 0.3, "robust": 0.4,
	"bullish": 0.6, "optimistic": 0.5, "outperform": 0.5, "upbeat": 0.6, "impressive": 1.0,
	"gain": 0.3, "gains": 0.3, "growth": 0.25, "surge": 0.4, "rally": 0.4,
	"beat": 0.3, "beats": 0.3, "record": 0.2, "profitable": 0.5, "favorable": 0.5,
	"upgrade": 0.4, "buy": 0.2, "promising": 0.5, "healthy": 0.5, "successful": 0.75,
	"high": 0.16, "higher": 0.25, "rising": 0.2, "momentum": 0.2, "confident": 0.5,
	"bad": -0.7, "poor": -0.4, "worst": -1.0, "worse": -0.4, "negative": -0.3,
	"weak": -0.38, "weaker": -0.4, "bearish": -0.6, "pessimistic": -0.5, "underperform": -0.5,
	"loss": -0.4, "losses": -0.4, "decline": -0.3, "drop": -0.3, "plunge": -0.6,
	"miss": -0.3, "missed": -0.3, "downgrade": -0.4, "sell": -0.2, "risk": -0.2,
	"risky": -0.5, "volatile": -0.2, "overvalued": -0.4, "concern": -0.3, "concerns": -0.3,
	"low": -0.1, "lower": -0.2, "falling": -0.3, "uncertain": -0.3, "disappointing": -0.6,
	"lawsuit": -0.4, "fraud": -0.8, "cut": -0.2, "slump": -0.5, "crash": -0.7,
	// 行情新闻常见的动词变形
	"soar": 0.6, "soared": 0.6, "soars": 0.6, "surged": 0.4, "surges": 0.4,
	"jumped": 0.4, "jumps": 0.4, "climbed": 0.3, "rallied": 0.4, "gained": 0.3,
	"upgraded": 0.4, "upgrades": 0.4, "outperformed": 0.5, "exceeded": 0.4, "upside": 0.3,
	"raised": 0.2, "tailwinds": 0.3, "boost": 0.4, "boosted": 0.4, "recovery": 0.3,
	"tumble": -0.6, "tumbled": -0.6, "tumbles": -0.6, "plunged": -0.6, "plunges": -0.6,
	"slash": -0.5, "slashed": -0.5, "slashes": -0.5, "cuts": -0.2, "lowered": -0.3,
	"downgraded": -0.4, "downgrades": -0.4, "underperformed": -0.5, "misses": -0.3, "downside": -0.3,
	"fell": -0.3, "falls": -0.3, "sank": -0.5, "slid": -0.3, "declined": -0.3,
	"declines": -0.3, "dropped": -0.3, "drops": -0.3, "selloff": -0.5, "warned": -0.4,
	"warns": -0.4, "warning": -0.4, "worried": -0.4, "worries": -0.4, "worry": -0.4,
	"fear": -0.5, "fears": -0.5, "pressure": -0.3, "dilution": -0.3, "headwinds": -0.3,
	"layoffs": -0.4, "bankruptcy": -0.8, "investigation": -0.3,
}

// intensifiers 修饰下一个有极性的词
var intensifiers = map[string]float64{
	"very": 1.3, "extremely": 1.5, "highly": 1.3, "really": 1.2, "incredibly": 1.5,
	"significantly": 1.3, "slightly": 0.5, "somewhat": 0.7, "fairly": 0.8,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "nor": true, "hardly": true,
	"don't": true, "doesn't": true, "isn't": true, "wasn't": true, "aren't": true,
	"won't": true, "cannot": true, "can't": true,
}

// negationFactor 否定词让下一个有极性的词反向并减半
const negationFactor = -0.5

// ErrInvalidText 文本不是合法 UTF-8
var ErrInvalidText = errors.New("text is not valid utf-8")

// LexiconScorer 基于词典的极性打分：对有极性的词取平均，结果限制在 [-1, 1]
// 不加载 VADER 词典时的备选实现
type LexiconScorer struct{}

// NewLexiconScorer 创建词典打分器
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

// Polarity 实现 Scorer，没有命中任何词时返回 0
func (LexiconScorer) Polarity(text string) (float64, error) {
	if !utf8.ValidString(text) {
		return 0, ErrInvalidText
	}

	var (
		sum      float64
		count    int
		modifier = 1.0
		negated  bool
	)
	for _, word := range tokenize(text) {
		if negations[word] {
			negated = true
			continue
		}
		if m, ok := intensifiers[word]; ok {
			modifier *= m
			continue
		}
		p, ok := lexicon[word]
		if !ok {
			continue
		}
		p *= modifier
		if negated {
			p *= negationFactor
		}
		sum += clamp(p)
		count++
		modifier = 1.0
		negated = false
	}

	if count == 0 {
		return 0, nil
	}
	return clamp(sum / float64(count)), nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	words := fields[:0]
	for _, f := range fields {
		if w := strings.Trim(f, "'"); w != "" {
			words = append(words, w)
		}
	}
	return words
}
