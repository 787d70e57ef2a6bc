// Package rating turns a store's feedback into a star rating summary.
//
// The star count is the positive share of feedback in steps of 20 percentage
// points, rounded half away from zero: 50% gives 3 stars, 75% gives 4.
package rating

import (
	"fmt"
	"strings"

	"github.com/abgdnv/partsfinder/internal/model"
)

// MaxStars is the length of every glyph sequence.
const MaxStars = 5

// Glyph is one position of the star sequence.
type Glyph string

const (
	GlyphFilled Glyph = "⭐"
	GlyphEmpty  Glyph = "☆"
)

// Summary is the aggregated view of a feedback sequence.
type Summary struct {
	Total      int             `json:"total"`
	Positive   int             `json:"positive"`
	Negative   int             `json:"negative"`
	Percentage float64         `json:"percentage"`
	Stars      int             `json:"stars"`
	StarGlyphs [MaxStars]Glyph `json:"starGlyphs"`
}

// Summarize counts the feedback by sentiment and derives the star rating.
// Anything not marked positive counts as negative.
func Summarize(feedback []model.Feedback) Summary {
	s := Summary{Total: len(feedback)}
	for _, f := range feedback {
		if f.Sentiment == model.SentimentPositive {
			s.Positive++
		}
	}
	s.Negative = s.Total - s.Positive

	if s.Total > 0 {
		s.Percentage = float64(s.Positive) * 100 / float64(s.Total)
		// round(5p/t) half up, kept in integers so x.5 boundaries never drift
		s.Stars = (10*s.Positive + s.Total) / (2 * s.Total)
	}
	for i := range s.StarGlyphs {
		if i < s.Stars {
			s.StarGlyphs[i] = GlyphFilled
		} else {
			s.StarGlyphs[i] = GlyphEmpty
		}
	}
	return s
}

// Glyphs renders the star sequence, e.g. "⭐⭐⭐⭐☆".
func (s Summary) Glyphs() string {
	var b strings.Builder
	for _, g := range s.StarGlyphs {
		b.WriteString(string(g))
	}
	return b.String()
}

// Text is the rating line shown under the feedback summary, e.g. "⭐⭐⭐⭐☆ (75.0%)".
func (s Summary) Text() string {
	return fmt.Sprintf("%s (%.1f%%)", s.Glyphs(), s.Percentage)
}
