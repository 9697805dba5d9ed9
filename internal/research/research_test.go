package research

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/propertyinbox/internal/geocode"
	"github.com/teemow/propertyinbox/internal/listing"
)

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		market string
		area   string
		want   string
	}{
		{"market only", "賃料相場は月7万円前後", "", "賃料相場は月7万円前後"},
		{"both", "相場", "エリア", "【相場調査】\n相場\n\n【エリア調査】\nエリア"},
		{"no market", "", "エリア", Unavailable},
		{"nothing", " ", "", Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.market, tt.area))
		})
	}
}

func TestMarketPrompt(t *testing.T) {
	s := Subject{Address: "東京都渋谷区1-1-1", Station: "渋谷"}
	p := MarketPrompt(s)
	assert.Contains(t, p, "所在地: 東京都渋谷区1-1-1")
	assert.Contains(t, p, "最寄駅: 渋谷")
	assert.NotContains(t, p, "緯度経度")

	s.Location = &geocode.Result{Lat: 35.658, Lng: 139.7016}
	s.Details = &listing.Details{Price: 61000000, Structure: "RC造"}
	p = MarketPrompt(s)
	assert.Contains(t, p, "緯度経度: 35.658000, 139.701600")
	assert.Contains(t, p, "価格: 61,000,000円")
	assert.Contains(t, p, "構造: RC造")
}

func TestResearcher_Research(t *testing.T) {
	market := &fakeLLM{reply: " 相場テキスト \n"}
	area := &fakeLLM{reply: "エリアテキスト"}
	r := NewResearcher(market, area)
	require.True(t, r.HasArea())

	f := r.Research(context.Background(), Subject{Address: "東京都渋谷区1-1-1"})
	require.NoError(t, f.MarketErr)
	require.NoError(t, f.AreaErr)
	assert.Equal(t, "相場テキスト", f.Market)
	assert.Equal(t, "エリアテキスト", f.Area)
	assert.Len(t, market.prompts, 1)
	assert.Len(t, area.prompts, 1)
}

func TestResearcher_AreaFailureKeepsMarket(t *testing.T) {
	r := NewResearcher(&fakeLLM{reply: "相場"}, &fakeLLM{err: errors.New("timeout")})

	f := r.Research(context.Background(), Subject{Address: "東京都渋谷区1-1-1"})
	assert.NoError(t, f.MarketErr)
	assert.Error(t, f.AreaErr)
	assert.Equal(t, "相場", Combine(f.Market, f.Area))
}

func TestResearcher_MarketFailure(t *testing.T) {
	r := NewResearcher(&fakeLLM{err: errors.New("quota")}, nil)
	assert.False(t, r.HasArea())

	f := r.Research(context.Background(), Subject{Address: "東京都渋谷区1-1-1"})
	assert.Error(t, f.MarketErr)
	assert.Empty(t, f.Area)
	assert.NoError(t, f.AreaErr)
	assert.Equal(t, Unavailable, Combine(f.Market, f.Area))
}
