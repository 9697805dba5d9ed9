package address

import (
	"context"
	"regexp"

	"golang.org/x/text/width"
)

var (
	labelled = regexp.MustCompile(`(?:所在地|住所)\s*[:：]?\s*([^\n]+)`)

	prefectureLed = regexp.MustCompile(`(?:東京都|北海道|京都府|大阪府|\p{Han}{2,3}県)[^\s、,。()（）]*?\d+(?:[-丁目番地号の]+\d+)*(?:番地|号)?`)

	cityLed = regexp.MustCompile(`\p{Han}{1,5}[市区町村][^\s、,。()（）]*?\d+(?:[-丁目番地号の]+\d+)*(?:番地|号)?`)
)

// RegexStrategy finds addresses with patterns: a labelled 所在地 field first,
// then a prefecture-led address, then a city-led one.
type RegexStrategy struct{}

// NewRegexStrategy creates a RegexStrategy.
func NewRegexStrategy() *RegexStrategy {
	return &RegexStrategy{}
}

// Source implements Strategy.
func (s *RegexStrategy) Source() Source {
	return SourceRegex
}

// Find implements Strategy. It never returns an error.
func (s *RegexStrategy) Find(_ context.Context, text string) (string, error) {
	text = width.Fold.String(text)

	for _, m := range labelled.FindAllStringSubmatch(text, -1) {
		if addr := Clean(m[1]); Sane(addr) {
			return addr, nil
		}
	}
	for _, re := range []*regexp.Regexp{prefectureLed, cityLed} {
		for _, m := range re.FindAllString(text, -1) {
			if addr := Clean(m); Sane(addr) {
				return addr, nil
			}
		}
	}
	return "", nil
}
