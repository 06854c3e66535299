package evaluator

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	arabicCharPattern  = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)
	sourceSplitPattern = regexp.MustCompile(`[.!?،؟\n]+`)
	plainSplitPattern  = regexp.MustCompile(`[.!?\n]+`)
)

// accuracy scores leftover source-script characters in the output (strong
// penalty) blended with the backend's own self-reported confidence.
func accuracy(output string, selfConfidence float64) float64 {
	runeCount := len([]rune(output))
	if runeCount == 0 {
		return 0
	}
	arabicCount := len(arabicCharPattern.FindAllString(output, -1))
	arabicRatio := float64(arabicCount) / float64(runeCount)
	heuristic := max(0.3, 1.0-arabicRatio*5)
	return heuristic*0.7 + selfConfidence*0.3
}

// completeness blends a length-ratio score with a sentence-count-ratio
// score, each scaled the same way.
func completeness(source, output string) float64 {
	sourceLen := len([]rune(source))
	outputLen := len([]rune(output))

	var lengthScore float64
	if sourceLen == 0 {
		lengthScore = 0
	} else {
		ratio := float64(outputLen) / float64(sourceLen)
		if ratio >= 0.5 && ratio <= 2.0 {
			lengthScore = min(1.0, 1.0-absf(1.0-ratio)*0.3)
		} else {
			lengthScore = max(0.2, 1.0-absf(1.0-ratio)*0.5)
		}
	}

	sourceSentences := len(sourceSplitPattern.Split(source, -1))
	outputSentences := len(plainSplitPattern.Split(output, -1))
	var sentenceRatio float64 = 1
	if sourceSentences > 0 {
		sentenceRatio = float64(outputSentences) / float64(sourceSentences)
	}
	sentenceScore := min(1.0, 1.0-absf(1.0-sentenceRatio)*0.4)

	return (lengthScore + sentenceScore) / 2
}

// fluency rewards varied, well-capitalized English sentences of moderate
// average length.
func fluency(output string) float64 {
	score := 0.75

	sentences := splitNonEmpty(output, regexp.MustCompile(`[.!?]+`))
	if len(sentences) == 0 {
		return 0.3
	}

	lengths := make([]int, len(sentences))
	var sum int
	for i, s := range sentences {
		lengths[i] = len(strings.Fields(s))
		sum += lengths[i]
	}

	if len(lengths) > 1 {
		avg := float64(sum) / float64(len(lengths))
		if avg >= 8 && avg <= 25 {
			score += 0.1
		}
		var variance float64
		for _, l := range lengths {
			d := float64(l) - avg
			variance += d * d
		}
		variance /= float64(len(lengths))
		if variance > 10 {
			score += 0.05
		}
	}

	var capitalized int
	for _, s := range sentences {
		r := []rune(strings.TrimSpace(s))
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			capitalized++
		}
	}
	score += (float64(capitalized) / float64(len(sentences))) * 0.1

	return min(1.0, score)
}

// consistency penalizes loops: text that repeats the same 3-word shingle
// over and over scores lower.
func consistency(output string) float64 {
	words := strings.Fields(output)
	if len(words) < 10 {
		return 0.8
	}

	seen := make(map[string]struct{}, len(words))
	var total int
	for i := 0; i+2 < len(words); i++ {
		shingle := strings.Join(words[i:i+3], " ")
		seen[shingle] = struct{}{}
		total++
	}
	if total == 0 {
		return 1.0
	}
	uniqueRatio := float64(len(seen)) / float64(total)
	return min(1.0, uniqueRatio+0.1)
}

// crossAgreement returns the mean word-set Jaccard similarity between text
// and every string in peers; 0.5 when peers is empty.
func crossAgreement(text string, peers []string) float64 {
	if len(peers) == 0 {
		return 0.5
	}
	var sum float64
	for _, p := range peers {
		sum += jaccard(text, p)
	}
	return sum / float64(len(peers))
}

func jaccard(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func splitNonEmpty(s string, re *regexp.Regexp) []string {
	parts := re.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
