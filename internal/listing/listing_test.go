package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) CompleteJSON(context.Context, string) (string, error) {
	return f.reply, f.err
}

const sampleReply = "```json\n" + `{
  "price": 61000000,
  "structure": "RC造",
  "year_built": "1998年3月",
  "land_area": "120.5㎡",
  "building_area": 310.2,
  "total_units": "12戸",
  "full_occupancy_rent": "306,000円",
  "floor_plan": "1K",
  "management_fee": null,
  "reserve_fund": "",
  "rent_roll": [{"unit": "101", "layout": "1K", "area": 20.1, "rent": 65000, "status": "入居中"}]
}` + "\n```"

func TestParse(t *testing.T) {
	d, err := Parse(sampleReply)
	require.NoError(t, err)

	assert.Equal(t, Number(61000000), d.Price)
	assert.Equal(t, "RC造", d.Structure)
	assert.Equal(t, Number(120.5), d.LandArea)
	assert.Equal(t, Number(12), d.TotalUnits)
	assert.Equal(t, Number(306000), d.FullOccupancyRent)
	assert.Zero(t, d.ManagementFee)
	assert.Zero(t, d.ReserveFund)
	require.Len(t, d.RentRoll, 1)
	assert.Equal(t, Number(65000), d.RentRoll[0].Rent)
	assert.True(t, d.Simulatable())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("I could not find anything")
	assert.Error(t, err)
}

func TestNumber_Unparseable(t *testing.T) {
	d, err := Parse(`{"price": "応相談", "full_occupancy_rent": 0}`)
	require.NoError(t, err)
	assert.Zero(t, d.Price)
	assert.False(t, d.Simulatable())
}

func TestDetails_SimulationInput(t *testing.T) {
	d, err := Parse(sampleReply)
	require.NoError(t, err)

	in := d.SimulationInput()
	assert.Equal(t, 61000000.0, in.Price)
	assert.Equal(t, 306000.0, in.MonthlyRent)
	assert.Equal(t, 12, in.TotalUnits)
	assert.Zero(t, in.ManagementFee)
}

func TestDetails_Lines(t *testing.T) {
	d, err := Parse(sampleReply)
	require.NoError(t, err)

	lines := d.Lines()
	assert.Contains(t, lines, "価格: 61,000,000円")
	assert.Contains(t, lines, "構造: RC造")
	assert.Contains(t, lines, "土地面積: 120.5㎡")
	assert.Contains(t, lines, "総戸数: 12戸")
	assert.Contains(t, lines, "満室想定賃料（月額）: 306,000円")
	assert.Contains(t, lines, "レントロール: 1件")
	assert.NotContains(t, lines, "管理費（月額）: ")
}

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor(&fakeLLM{reply: `{"price": 50000000, "full_occupancy_rent": 250000}`})
	d, err := e.Extract(context.Background(), "販売図面テキスト")
	require.NoError(t, err)
	assert.Equal(t, Number(50000000), d.Price)

	_, err = e.Extract(context.Background(), "  ")
	assert.Error(t, err)

	failing := NewExtractor(&fakeLLM{err: errors.New("quota")})
	_, err = failing.Extract(context.Background(), "text")
	assert.Error(t, err)
}
