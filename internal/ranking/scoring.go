package ranking

import "math"

// Scores holds the four category scores of one entry. Each score lives in
// [0, 10] and defaults to 0 for entries that have not been scored yet.
type Scores struct {
	Technical    float64 `json:"technical"`
	Storytelling float64 `json:"storytelling"`
	Enjoyment    float64 `json:"enjoyment"`
	XFactor      float64 `json:"xfactor"`
}

// Weights holds the four non-negative multipliers applied to the category
// scores before aggregation. A fresh list starts with all weights at 1.0.
type Weights struct {
	Technical    float64 `json:"technical"`
	Storytelling float64 `json:"storytelling"`
	Enjoyment    float64 `json:"enjoyment"`
	XFactor      float64 `json:"xfactor"`
}

// EvenWeights returns the neutral weight vector used by "even" mode: all
// four categories count equally, regardless of what the list stores.
func EvenWeights() Weights {
	return Weights{Technical: 1, Storytelling: 1, Enjoyment: 1, XFactor: 1}
}

func (w Weights) Total() float64 {
	return w.Technical + w.Storytelling + w.Enjoyment + w.XFactor
}

// OverallScore computes the weighted average of the four category scores,
// rounded to one decimal. Rounding is half away from zero (math.Round), so
// 7.25 becomes 7.3. When the weight total is zero the result is 0 rather
// than a division by zero; the function never fails for non-negative input.
func OverallScore(s Scores, w Weights) float64 {
	total := w.Total()
	if total == 0 {
		return 0
	}
	weighted := s.Technical*w.Technical +
		s.Storytelling*w.Storytelling +
		s.Enjoyment*w.Enjoyment +
		s.XFactor*w.XFactor
	return math.Round(weighted/total*10) / 10
}
