package exercise

import (
	"context"
	"strings"
	"testing"
)

type stubGenerator struct {
	reply string
	err   error
	last  string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.last = prompt
	return s.reply, s.err
}

const validReply = `{
  "card": { "point": "一元二次方程", "concept": "判别式决定根的个数", "tip": "先化为标准形式" },
  "exercises": [
    { "type": "平行变式", "q": "解方程 x^2-4x+3=0", "a": "x=1 或 x=3" },
    { "type": "进阶变式", "q": "解方程 2x^2-4x+1=0", "a": "x=(2±√2)/2" },
    { "type": "应用变式", "q": "某矩形面积问题", "a": "建立方程求解" }
  ]
}`

func TestAnalyzeParsesModelOutput(t *testing.T) {
	gen := &stubGenerator{reply: validReply}
	set, err := NewAnalyzer(gen).Analyze(context.Background(), `x^{2}-4x+3=0`)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if set.Card.Point != "一元二次方程" {
		t.Fatalf("unexpected card: %#v", set.Card)
	}
	if len(set.Exercises) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(set.Exercises))
	}
	if !strings.Contains(gen.last, `x^{2}-4x+3=0`) {
		t.Fatalf("prompt does not carry the formula: %s", gen.last)
	}
}

func TestAnalyzeToleratesCodeFence(t *testing.T) {
	gen := &stubGenerator{reply: "```json\n" + validReply + "\n```"}
	set, err := NewAnalyzer(gen).Analyze(context.Background(), "x=1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(set.Exercises) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(set.Exercises))
	}
}

func TestAnalyzeRejectsMalformedOutput(t *testing.T) {
	cases := []string{
		"not json",
		`{"card":{},"exercises":[]}`,
		`{"card":{"point":"p"},"exercises":[{"type":"t","q":"","a":""}]}`,
	}
	for _, reply := range cases {
		_, err := NewAnalyzer(&stubGenerator{reply: reply}).Analyze(context.Background(), "x=1")
		if err == nil {
			t.Fatalf("expected error for reply %q", reply)
		}
	}
}

func TestAnalyzeRequiresLatex(t *testing.T) {
	if _, err := NewAnalyzer(&stubGenerator{reply: validReply}).Analyze(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank latex")
	}
}
