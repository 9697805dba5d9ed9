// Package listing extracts structured property data from floorplan text with
// a language model.
package listing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/teemow/propertyinbox/internal/llm"
	"github.com/teemow/propertyinbox/internal/simulation"
)

// maxPromptRunes bounds the document text sent to the model.
const maxPromptRunes = 12000

const prompt = `以下は不動産の販売図面から抽出したテキストです。次のキーを持つJSONオブジェクトだけを返してください。
不明な項目は null にしてください。金額はすべて円単位の数値で、カンマや単位を含めないでください。

- price: 販売価格（円）
- structure: 構造（例: RC造）
- year_built: 築年月（例: 1998年3月）
- land_area: 土地面積（㎡、数値）
- building_area: 建物面積または専有面積（㎡、数値）
- total_units: 総戸数（数値）
- full_occupancy_rent: 満室想定賃料（月額、円）
- floor_plan: 間取り
- management_fee: 管理費（月額、円）
- reserve_fund: 修繕積立金（月額、円）
- rent_roll: レントロールの配列。各要素は {"unit": 部屋番号, "layout": 間取り, "area": ㎡, "rent": 月額賃料（円）, "status": 入居状況}

---
`

var printer = message.NewPrinter(language.Japanese)

// RentRollEntry is one unit of a rent roll.
type RentRollEntry struct {
	Unit   string `json:"unit"`
	Layout string `json:"layout,omitempty"`
	Area   Number `json:"area,omitempty"`
	Rent   Number `json:"rent,omitempty"`
	Status string `json:"status,omitempty"`
}

// Details is the structured data of a listing. Zero values mean unknown.
type Details struct {
	Price             Number          `json:"price"`
	Structure         string          `json:"structure,omitempty"`
	YearBuilt         string          `json:"year_built,omitempty"`
	LandArea          Number          `json:"land_area,omitempty"`
	BuildingArea      Number          `json:"building_area,omitempty"`
	TotalUnits        Number          `json:"total_units,omitempty"`
	FullOccupancyRent Number          `json:"full_occupancy_rent"`
	FloorPlan         string          `json:"floor_plan,omitempty"`
	ManagementFee     Number          `json:"management_fee,omitempty"`
	ReserveFund       Number          `json:"reserve_fund,omitempty"`
	RentRoll          []RentRollEntry `json:"rent_roll,omitempty"`
}

// SimulationInput maps the details onto the simulation input.
func (d *Details) SimulationInput() simulation.Input {
	return simulation.Input{
		Price:         float64(d.Price),
		MonthlyRent:   float64(d.FullOccupancyRent),
		ManagementFee: float64(d.ManagementFee),
		ReserveFund:   float64(d.ReserveFund),
		TotalUnits:    int(d.TotalUnits),
	}
}

// Simulatable reports whether the details carry a price and rent.
func (d *Details) Simulatable() bool {
	return d.Price > 0 && d.FullOccupancyRent > 0
}

// Lines renders the known fields for the report.
func (d *Details) Lines() []string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("価格", d.Price.Yen())
	add("構造", d.Structure)
	add("築年月", d.YearBuilt)
	add("土地面積", d.LandArea.Area())
	add("建物面積", d.BuildingArea.Area())
	if d.TotalUnits > 0 {
		add("総戸数", fmt.Sprintf("%d戸", int(d.TotalUnits)))
	}
	add("満室想定賃料（月額）", d.FullOccupancyRent.Yen())
	add("間取り", d.FloorPlan)
	add("管理費（月額）", d.ManagementFee.Yen())
	add("修繕積立金（月額）", d.ReserveFund.Yen())
	if len(d.RentRoll) > 0 {
		lines = append(lines, fmt.Sprintf("レントロール: %d件", len(d.RentRoll)))
	}
	return lines
}

// JSONCompleter is the language-model capability the extractor needs.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// Extractor asks a language model for listing details.
type Extractor struct {
	llm JSONCompleter
}

// NewExtractor creates an Extractor.
func NewExtractor(llm JSONCompleter) *Extractor {
	return &Extractor{llm: llm}
}

// Extract returns the details found in text.
func (e *Extractor) Extract(ctx context.Context, text string) (*Details, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("listing: no text to extract from")
	}
	reply, err := e.llm.CompleteJSON(ctx, prompt+limitRunes(text, maxPromptRunes))
	if err != nil {
		return nil, err
	}
	return Parse(reply)
}

// Parse decodes a model reply, tolerating a surrounding code fence.
func Parse(reply string) (*Details, error) {
	var d Details
	if err := json.Unmarshal([]byte(llm.StripCodeFence(reply)), &d); err != nil {
		return nil, fmt.Errorf("failed to decode listing details: %w", err)
	}
	return &d, nil
}

// Number is a numeric field that also accepts null and strings with
// thousands separators and a unit suffix such as "61,000,000円".
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.NewReplacer(",", "", "円", "", "㎡", "", "m2", "", "戸", "", " ", "").Replace(str)
		if s == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// unparseable values are treated as unknown
		*n = 0
		return nil
	}
	*n = Number(v)
	return nil
}

// Yen formats n as an amount, or "" when zero.
func (n Number) Yen() string {
	if n <= 0 {
		return ""
	}
	return printer.Sprintf("%d円", int64(n))
}

// Area formats n in square metres, or "" when zero.
func (n Number) Area() string {
	if n <= 0 {
		return ""
	}
	return strconv.FormatFloat(float64(n), 'f', -1, 64) + "㎡"
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
