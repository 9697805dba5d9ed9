package address

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func TestRegexStrategy_Find(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "labelled field",
			text: "物件概要\n所在地：東京都渋谷区道玄坂1-2-3\n価格：6,100万円",
			want: "東京都渋谷区道玄坂1-2-3",
		},
		{
			name: "labelled field with lot note",
			text: "所在地 神奈川県横浜市中区山下町10番地（地番）",
			want: "神奈川県横浜市中区山下町10番地",
		},
		{
			name: "full-width digits",
			text: "所在地：東京都目黒区中目黒３－４－５",
			want: "東京都目黒区中目黒3-4-5",
		},
		{
			name: "prefecture-led without label",
			text: "物件 東京都渋谷区1-1-1 徒歩5分",
			want: "東京都渋谷区1-1-1",
		},
		{
			name: "block and lot notation",
			text: "大阪府大阪市北区梅田一丁目2番3号 梅田駅徒歩4分",
			want: "大阪府大阪市北区梅田一丁目2番3号",
		},
		{
			name: "city-led",
			text: "物件は横浜市港北区日吉2-5-1にあります",
			want: "横浜市港北区日吉2-5-1",
		},
		{
			name: "no address",
			text: "価格：6,100万円 利回り5.2%",
			want: "",
		},
	}

	s := NewRegexStrategy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Find(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSane(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"東京都渋谷区1-1-1", true},
		{"渋谷区道玄坂一丁目", true},
		{"東京都渋谷区", false},
		{"1-1-1", false},
		{"区1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sane(tt.in))
		})
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "東京都渋谷区1-1-1", Clean("「所在地：東京都渋谷区1-1-1」"))
	assert.Equal(t, "東京都渋谷区1-1-1", Clean("東京都渋谷区1-1-1 (住居表示)"))
	assert.Equal(t, "東京都渋谷区1-1-1", Clean("住所 東京都渋谷区1-1-1。"))
}

func TestLLMStrategy(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  string
		isErr bool
	}{
		{"address", "東京都目黒区中目黒3-4-5\n以上です", nil, "東京都目黒区中目黒3-4-5", false},
		{"none answer", "なし", nil, "", false},
		{"unknown answer", "「不明」", nil, "", false},
		{"provider error", "", errors.New("boom"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLLMStrategy(&fakeLLM{reply: tt.reply, err: tt.err})
			got, err := s.Find(context.Background(), "text")
			if tt.isErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Nil(t, NewLLMStrategy(nil))
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("regex wins without calling the model", func(t *testing.T) {
		llm := &fakeLLM{reply: "東京都港区1-1"}
		r := NewResolver(nil, NewRegexStrategy(), NewLLMStrategy(llm))

		res := r.Resolve(context.Background(), "所在地：東京都渋谷区1-1-1")
		assert.Equal(t, Result{Address: "東京都渋谷区1-1-1", Source: SourceRegex}, res)
		assert.True(t, res.Found())
		assert.Equal(t, 0, llm.calls)
	})

	t.Run("falls back to the model", func(t *testing.T) {
		llm := &fakeLLM{reply: "東京都目黒区中目黒3-4-5"}
		r := NewResolver(nil, NewRegexStrategy(), NewLLMStrategy(llm))

		res := r.Resolve(context.Background(), "駅徒歩5分の好立地")
		assert.Equal(t, Result{Address: "東京都目黒区中目黒3-4-5", Source: SourceLLM}, res)
		assert.Contains(t, llm.prompt, "駅徒歩5分の好立地")
	})

	t.Run("model failure yields none", func(t *testing.T) {
		r := NewResolver(nil, NewRegexStrategy(), NewLLMStrategy(&fakeLLM{err: errors.New("quota")}))

		res := r.Resolve(context.Background(), "住所の記載なし")
		assert.Equal(t, SourceNone, res.Source)
		assert.False(t, res.Found())
	})

	t.Run("implausible model answer yields none", func(t *testing.T) {
		r := NewResolver(nil, NewRegexStrategy(), NewLLMStrategy(&fakeLLM{reply: "渋谷のあたり"}))

		res := r.Resolve(context.Background(), "地図のみ")
		assert.Equal(t, SourceNone, res.Source)
	})

	t.Run("empty text", func(t *testing.T) {
		llm := &fakeLLM{reply: "東京都港区1-1"}
		r := NewResolver(nil, NewRegexStrategy(), NewLLMStrategy(llm))

		assert.Equal(t, SourceNone, r.Resolve(context.Background(), "  ").Source)
		assert.Equal(t, 0, llm.calls)
	})
}
