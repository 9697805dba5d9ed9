package address

import (
	"context"
	"strings"
	"unicode/utf8"
)

// maxPromptRunes bounds the document text sent to the model.
const maxPromptRunes = 8000

const llmPrompt = `以下は不動産の販売図面から抽出したテキストです。物件の所在地（住所）を1行で答えてください。
都道府県から番地までを含めてください。説明は不要です。所在地が見つからない場合は「なし」とだけ答えてください。

---
`

// noneAnswers are replies meaning the model found no address.
var noneAnswers = []string{"なし", "不明", "none", "n/a", "該当なし"}

// Completer is the language-model capability the LLM strategy needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMStrategy asks a language model for the address.
type LLMStrategy struct {
	llm Completer
}

// NewLLMStrategy creates an LLMStrategy. It returns nil when llm is nil so
// that NewResolver drops it.
func NewLLMStrategy(llm Completer) Strategy {
	if llm == nil {
		return nil
	}
	return &LLMStrategy{llm: llm}
}

// Source implements Strategy.
func (s *LLMStrategy) Source() Source {
	return SourceLLM
}

// Find implements Strategy. Only the first line of the reply is used.
func (s *LLMStrategy) Find(ctx context.Context, text string) (string, error) {
	reply, err := s.llm.Complete(ctx, llmPrompt+limitRunes(text, maxPromptRunes))
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(reply), "\n", 2)[0])
	for _, none := range noneAnswers {
		if strings.EqualFold(strings.Trim(line, "「」。."), none) {
			return "", nil
		}
	}
	return line, nil
}

func limitRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
