package voicein

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/echo-copilot/echo/internal/model"
)

// MatchResult is the outcome of mapping a spoken transcript to one of a
// set of presented options.
type MatchResult struct {
	MatchedText string
	Confidence  float64
	Method      model.MatchMethod
}

var ordinalWords = map[string]int{
	"one": 0, "first": 0, "1": 0,
	"two": 1, "second": 1, "2": 1,
	"three": 2, "third": 2, "3": 2,
	"four": 3, "fourth": 3, "4": 3,
	"five": 4, "fifth": 4, "5": 4,
	"six": 5, "sixth": 5, "6": 5,
	"seven": 6, "seventh": 6, "7": 6,
	"eight": 7, "eighth": 7, "8": 7,
	"nine": 8, "ninth": 8, "9": 8,
	"ten": 9, "tenth": 9, "10": 9,
}

var ordinalStripWords = map[string]bool{
	"option": true, "the": true, "number": true, "pick": true,
}

var yesWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"allow": true, "approve": true, "accept": true, "ok": true, "okay": true,
}

var noWords = map[string]bool{
	"no": true, "nah": true, "nope": true, "deny": true, "reject": true,
	"decline": true, "refuse": true, "block": true,
}

// Matcher maps spoken transcript text to the best matching option from a
// list, trying ordinal, yes/no, direct, fuzzy, and verbatim strategies in
// that order — the first strategy to produce a result wins.
type Matcher struct {
	confidenceThreshold float64
}

// NewMatcher builds a Matcher. confidenceThreshold gates the fuzzy
// strategy: a best fuzzy ratio below it is treated as no match.
func NewMatcher(confidenceThreshold float64) *Matcher {
	return &Matcher{confidenceThreshold: confidenceThreshold}
}

// Match runs the strategy chain against transcript for the given options
// and (for the yes/no shortcut) blockReason.
func (m *Matcher) Match(transcript string, options []string, blockReason model.BlockReason) MatchResult {
	if len(options) == 0 {
		return MatchResult{MatchedText: strings.TrimSpace(transcript), Confidence: 1.0, Method: model.MatchVerbatim}
	}

	if r, ok := m.tryOrdinal(transcript, options); ok {
		return r
	}
	if r, ok := m.tryYesNo(transcript, options, blockReason); ok {
		return r
	}
	if r, ok := m.tryDirect(transcript, options); ok {
		return r
	}
	if r, ok := m.tryFuzzy(transcript, options); ok {
		return r
	}
	return MatchResult{MatchedText: strings.TrimSpace(transcript), Confidence: 1.0, Method: model.MatchVerbatim}
}

func (m *Matcher) tryOrdinal(transcript string, options []string) (MatchResult, bool) {
	words := strings.Fields(strings.ToLower(transcript))
	for _, w := range words {
		if ordinalStripWords[w] {
			continue
		}
		if idx, ok := ordinalWords[w]; ok && idx < len(options) {
			return MatchResult{MatchedText: options[idx], Confidence: 0.95, Method: model.MatchOrdinal}, true
		}
	}
	return MatchResult{}, false
}

func (m *Matcher) tryYesNo(transcript string, options []string, blockReason model.BlockReason) (MatchResult, bool) {
	if len(options) != 2 || blockReason != model.BlockPermission {
		return MatchResult{}, false
	}

	words := strings.Fields(strings.ToLower(strings.TrimSpace(transcript)))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	for w := range set {
		if yesWords[w] {
			return MatchResult{MatchedText: options[0], Confidence: 0.9, Method: model.MatchYesNo}, true
		}
	}
	for w := range set {
		if noWords[w] {
			return MatchResult{MatchedText: options[1], Confidence: 0.9, Method: model.MatchYesNo}, true
		}
	}
	return MatchResult{}, false
}

func (m *Matcher) tryDirect(transcript string, options []string) (MatchResult, bool) {
	lower := strings.ToLower(transcript)
	var best string
	found := false
	for _, opt := range options {
		optLower := strings.ToLower(opt)
		if strings.Contains(lower, optLower) || strings.Contains(optLower, lower) {
			if !found || len(opt) > len(best) {
				best = opt
				found = true
			}
		}
	}
	if !found {
		return MatchResult{}, false
	}
	return MatchResult{MatchedText: best, Confidence: 0.85, Method: model.MatchDirect}, true
}

func (m *Matcher) tryFuzzy(transcript string, options []string) (MatchResult, bool) {
	lower := strings.ToLower(transcript)
	var best string
	bestRatio := 0.0
	for _, opt := range options {
		ratio := matchr.JaroWinkler(lower, strings.ToLower(opt), false)
		if ratio > bestRatio {
			bestRatio = ratio
			best = opt
		}
	}
	if best == "" || bestRatio < m.confidenceThreshold {
		return MatchResult{}, false
	}
	return MatchResult{MatchedText: best, Confidence: bestRatio, Method: model.MatchFuzzy}, true
}
