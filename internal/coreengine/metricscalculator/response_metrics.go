package metricscalculator

import (
	"math"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// WERResult carries the word-error-rate breakdown for one scored response.
type WERResult struct {
	ReferenceWords  int            `json:"reference_words"`
	HypothesisWords int            `json:"hypothesis_words"`
	Correct         int            `json:"correct"`
	Substitutions   int            `json:"substitutions"`
	Insertions      int            `json:"insertions"`
	Deletions       int            `json:"deletions"`
	WER             float64        `json:"wer"`
	WERPercent      float64        `json:"wer_percent"`
	Accuracy        float64        `json:"accuracy"` // max(0, 1-WER)
	Alignment       *Alignment `json:"-"`
}

// CalculateWER normalizes both texts, aligns them word by word and derives
// WER = (substitutions + insertions + deletions) / reference word count.
// Edge cases: both empty yields WER 0 and accuracy 1; an empty reference with
// a non-empty hypothesis yields WER equal to the hypothesis word count (all
// insertions, accuracy 0); an empty hypothesis yields all deletions, WER 1.
func CalculateWER(groundTruth, hypothesis string, opts NormalizeOptions) *WERResult {
	ref := Tokenize(Normalize(groundTruth, opts))
	hyp := Tokenize(Normalize(hypothesis, opts))

	alignment := AlignWords(ref, hyp)
	res := &WERResult{
		ReferenceWords:  len(ref),
		HypothesisWords: len(hyp),
		Correct:         alignment.Correct,
		Substitutions:   alignment.Substitutions,
		Insertions:      alignment.Insertions,
		Deletions:       alignment.Deletions,
		Alignment:       alignment,
	}

	errors := alignment.Substitutions + alignment.Insertions + alignment.Deletions
	switch {
	case len(ref) == 0 && len(hyp) == 0:
		res.WER = 0
	case len(ref) == 0:
		// No reference to normalize against; each hypothesis word counts as
		// one full error, so WER can exceed 1 here.
		res.WER = float64(len(hyp))
	default:
		res.WER = float64(errors) / float64(len(ref))
	}
	res.WERPercent = res.WER * 100
	res.Accuracy = math.Max(0, 1-res.WER)
	return res
}

// CalculateCER computes the character error rate with the same unit-cost edit
// distance, applied over runes after stripping all whitespace.
func CalculateCER(groundTruth, hypothesis string, opts NormalizeOptions) float64 {
	ref := []rune(stripSpaces(Normalize(groundTruth, opts)))
	hyp := []rune(stripSpaces(Normalize(hypothesis, opts)))

	if len(ref) == 0 && len(hyp) == 0 {
		return 0
	}
	if len(ref) == 0 {
		return float64(len(hyp))
	}

	distance := levenshtein.DistanceForStrings(ref, hyp, levenshtein.Options{
		InsCost: 1,
		DelCost: 1,
		SubCost: 1,
		Matches: levenshtein.IdenticalRunes,
	})
	return float64(distance) / float64(len(ref))
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
