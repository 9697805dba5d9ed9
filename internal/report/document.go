package report

import (
	"strings"
	"time"

	"github.com/teemow/propertyinbox/internal/address"
	"github.com/teemow/propertyinbox/internal/docs"
	"github.com/teemow/propertyinbox/internal/geocode"
	"github.com/teemow/propertyinbox/internal/listing"
	"github.com/teemow/propertyinbox/internal/research"
	"github.com/teemow/propertyinbox/internal/simulation"
)

// CoordinatesUnavailable is the location section text when geocoding did not
// succeed.
const CoordinatesUnavailable = "coordinates unavailable"

// Section headings of the report document.
const (
	HeadingProperty   = "物件情報"
	HeadingLocation   = "位置情報"
	HeadingDetails    = "物件データ"
	HeadingMarket     = "市場調査"
	HeadingSimulation = "投資シミュレーション"
	HeadingGenerated  = "作成日時"
)

// Content is everything a report document is composed from.
type Content struct {
	Number     string
	Station    string
	Address    address.Result
	Location   Outcome[geocode.Result]
	Details    Outcome[*listing.Details]
	Market     Outcome[string]
	Area       Outcome[string]
	Simulation Outcome[*simulation.Result]
	Generated  time.Time
}

// Title returns the document title for a property.
func Title(number, station string) string {
	return "物件評価レポート_" + number + "_" + station
}

// Compose lays out the report sections. Sections without data are omitted,
// except location and market which always carry a placeholder.
func Compose(c Content) []docs.Section {
	sections := []docs.Section{
		{
			Heading: HeadingProperty,
			Lines: []string{
				"物件番号: " + c.Number,
				"最寄駅: " + c.Station,
				"所在地: " + c.Address.Address,
				"住所抽出方法: " + string(c.Address.Source),
			},
		},
	}

	location := CoordinatesUnavailable
	if c.Location.IsOk() {
		location = c.Location.Value.String()
	}
	sections = append(sections, docs.Section{Heading: HeadingLocation, Lines: []string{location}})

	if c.Details.IsOk() && c.Details.Value != nil {
		if lines := c.Details.Value.Lines(); len(lines) > 0 {
			sections = append(sections, docs.Section{Heading: HeadingDetails, Lines: lines})
		}
	}

	market := research.Unavailable
	if c.Market.IsOk() {
		area := ""
		if c.Area.IsOk() {
			area = c.Area.Value
		}
		market = research.Combine(c.Market.Value, area)
	}
	sections = append(sections, docs.Section{Heading: HeadingMarket, Lines: strings.Split(market, "\n")})

	if c.Simulation.IsOk() {
		sections = append(sections, docs.Section{
			Heading: HeadingSimulation,
			Lines:   trimLeadingBlank(simulation.SummaryLines(c.Simulation.Value)),
		})
	}

	sections = append(sections, docs.Section{
		Heading: HeadingGenerated,
		Lines:   []string{c.Generated.Format(time.RFC3339)},
	})
	return sections
}

func trimLeadingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return lines
}
