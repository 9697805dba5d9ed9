// Package research generates market and area research text for a property
// with language models.
package research

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/propertyinbox/internal/geocode"
	"github.com/teemow/propertyinbox/internal/listing"
)

// Unavailable is the market section text when research failed.
const Unavailable = "market data unavailable"

const (
	marketHeading = "【相場調査】"
	areaHeading   = "【エリア調査】"
)

// Completer is the language-model capability research needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Subject is the property being researched. Location and Details are
// optional.
type Subject struct {
	Address  string
	Station  string
	Number   string
	Location *geocode.Result
	Details  *listing.Details
}

// Findings holds both research texts. A failed or skipped research leaves
// its text empty.
type Findings struct {
	Market    string
	MarketErr error
	Area      string
	AreaErr   error
}

// Researcher runs market research and, when an area model is configured,
// area research.
type Researcher struct {
	market Completer
	area   Completer
}

// NewResearcher creates a Researcher. area may be nil.
func NewResearcher(market, area Completer) *Researcher {
	return &Researcher{market: market, area: area}
}

// HasArea reports whether area research is configured.
func (r *Researcher) HasArea() bool {
	return r.area != nil
}

// Market asks for comparable rents and prices around the subject.
func (r *Researcher) Market(ctx context.Context, s Subject) (string, error) {
	if r.market == nil {
		return "", fmt.Errorf("research: no market model configured")
	}
	text, err := r.market.Complete(ctx, MarketPrompt(s))
	if err != nil {
		return "", fmt.Errorf("market research failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Area asks for an area profile of the subject's neighbourhood.
func (r *Researcher) Area(ctx context.Context, s Subject) (string, error) {
	if r.area == nil {
		return "", nil
	}
	text, err := r.area.Complete(ctx, AreaPrompt(s))
	if err != nil {
		return "", fmt.Errorf("area research failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Research runs market and area research concurrently. Neither failure
// cancels the other.
func (r *Researcher) Research(ctx context.Context, s Subject) Findings {
	var (
		f Findings
		g errgroup.Group
	)
	g.Go(func() error {
		f.Market, f.MarketErr = r.Market(ctx, s)
		return nil
	})
	g.Go(func() error {
		f.Area, f.AreaErr = r.Area(ctx, s)
		return nil
	})
	_ = g.Wait()
	return f
}

// Combine joins market and area research, market first. With no market text
// the result is Unavailable; area text never replaces it.
func Combine(market, area string) string {
	market = strings.TrimSpace(market)
	area = strings.TrimSpace(area)
	if market == "" {
		return Unavailable
	}
	if area == "" {
		return market
	}
	return marketHeading + "\n" + market + "\n\n" + areaHeading + "\n" + area
}

// MarketPrompt builds the market research prompt. Coordinates are included
// only when known.
func MarketPrompt(s Subject) string {
	var b strings.Builder
	b.WriteString("あなたは日本の収益不動産の市場調査アナリストです。次の物件について、周辺の賃料相場（間取り・面積別）、")
	b.WriteString("類似物件の取引価格と利回り、賃貸需要を簡潔にまとめてください。数値には根拠と想定レンジを添えてください。\n\n")
	writeSubject(&b, s)
	return b.String()
}

// AreaPrompt builds the area research prompt.
func AreaPrompt(s Subject) string {
	var b strings.Builder
	b.WriteString("次の物件の周辺エリアについて、最寄駅の乗降客数と交通利便性、人口・世帯数の推移、")
	b.WriteString("再開発計画、生活利便施設、ハザードマップ上のリスクを最新の情報源に基づいて調査し、要点をまとめてください。\n\n")
	writeSubject(&b, s)
	return b.String()
}

func writeSubject(b *strings.Builder, s Subject) {
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(b, "%s: %s\n", label, value)
		}
	}
	line("所在地", s.Address)
	if s.Location != nil {
		line("緯度経度", s.Location.String())
	}
	line("最寄駅", s.Station)
	if s.Details != nil {
		line("価格", s.Details.Price.Yen())
		line("構造", s.Details.Structure)
		line("築年月", s.Details.YearBuilt)
		line("間取り", s.Details.FloorPlan)
		line("建物面積", s.Details.BuildingArea.Area())
		line("満室想定賃料（月額）", s.Details.FullOccupancyRent.Yen())
	}
}
