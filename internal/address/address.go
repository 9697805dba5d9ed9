package address

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Source tags where an address came from.
type Source string

const (
	SourceRegex Source = "regex"
	SourceLLM   Source = "llm"
	SourceNone  Source = "none"
)

// Result is the outcome of address resolution. Address is empty when Source
// is SourceNone.
type Result struct {
	Address string `json:"address,omitempty"`
	Source  Source `json:"source"`
}

// Found reports whether an address was resolved.
func (r Result) Found() bool {
	return r.Source != SourceNone && r.Address != ""
}

// Strategy finds an address in text. An empty string with a nil error means
// nothing was found.
type Strategy interface {
	Source() Source
	Find(ctx context.Context, text string) (string, error)
}

// Resolver tries strategies in rank order.
type Resolver struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewResolver creates a Resolver over strategies, highest rank first.
func NewResolver(logger *slog.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	var ranked []Strategy
	for _, s := range strategies {
		if s != nil {
			ranked = append(ranked, s)
		}
	}
	return &Resolver{strategies: ranked, logger: logger}
}

// Resolve returns the first plausible address any strategy finds. It never
// fails; strategy errors are logged and the next strategy is tried.
func (r *Resolver) Resolve(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Source: SourceNone}
	}
	for _, s := range r.strategies {
		addr, err := s.Find(ctx, text)
		if err != nil {
			r.logger.Debug("address strategy failed",
				slog.String("strategy", string(s.Source())),
				slog.String("error", err.Error()))
			continue
		}
		addr = Clean(addr)
		if Sane(addr) {
			return Result{Address: addr, Source: s.Source()}
		}
	}
	return Result{Source: SourceNone}
}

const (
	minRunes = 5
	maxRunes = 100

	// adminMarkers are the administrative-division and block characters a
	// Japanese street address carries.
	adminMarkers = "都道府県市区町村郡丁目番地"
)

// Sane reports whether s looks like a Japanese street address: a reasonable
// length, at least one digit and at least one administrative marker.
func Sane(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minRunes || n > maxRunes {
		return false
	}
	hasDigit := strings.IndexFunc(s, unicode.IsDigit) >= 0 || strings.ContainsAny(s, "一二三四五六七八九十")
	return hasDigit && strings.ContainsAny(s, adminMarkers)
}

// Clean normalizes a candidate address: full-width ASCII is folded, the
// surrounding quotes and a leading 所在地 label are removed and the result is
// cut at the first whitespace or parenthesis.
func Clean(s string) string {
	s = width.Fold.String(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'「」『』")
	for _, label := range []string{"所在地", "住所"} {
		if strings.HasPrefix(s, label) {
			s = strings.TrimLeft(strings.TrimPrefix(s, label), " :：\t")
		}
	}
	if i := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == '（'
	}); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "、,。.")
}
