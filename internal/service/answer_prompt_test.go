package service

import (
	"strings"
	"testing"

	"rag-chat/internal/domain"
)

func TestBuildAnswerPrompt(t *testing.T) {
	ctxs := []domain.Context{
		{Text: "Primer pasaje", Source: "https://a"},
		{Text: "Segundo pasaje", Source: "https://b"},
	}
	p := BuildAnswerPrompt(ctxs, "What happened today?")

	for _, want := range []string{"only the context passages", "don't know", "(1) Primer pasaje\nSource: https://a", "(2) Segundo pasaje\nSource: https://b", "Question: What happened today?"} {
		if !strings.Contains(p, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, p)
		}
	}
	if strings.Index(p, "(1)") > strings.Index(p, "(2)") {
		t.Fatalf("expected passages in order")
	}

	empty := BuildAnswerPrompt(nil, "q")
	if !strings.Contains(empty, "no context passages") {
		t.Fatalf("expected empty-context marker, got %s", empty)
	}
}

func TestBuildDegradedAnswer(t *testing.T) {
	t.Run("limita a tres pasajes", func(t *testing.T) {
		var ctxs []domain.Context
		for _, s := range []string{"a", "b", "c", "d", "e"} {
			ctxs = append(ctxs, domain.Context{Text: "text-" + s, Source: "src-" + s})
		}
		content, top := BuildDegradedAnswer(ctxs)
		if len(top) != 3 {
			t.Fatalf("expected 3 contexts, got %d", len(top))
		}
		if !strings.HasPrefix(content, DegradedNotice) {
			t.Fatalf("expected degraded notice prefix, got %q", content)
		}
		for _, c := range top {
			if !strings.Contains(content, c.Text) || !strings.Contains(content, c.Source) {
				t.Fatalf("expected content to embed %+v", c)
			}
		}
		if strings.Contains(content, "text-d") {
			t.Fatalf("did not expect fourth context in content")
		}
		top[0].Text = "mutated"
		if ctxs[0].Text != "text-a" {
			t.Fatalf("expected subset to be a copy")
		}
	})

	t.Run("menos de tres", func(t *testing.T) {
		_, top := BuildDegradedAnswer([]domain.Context{{Text: "x", Source: "y"}})
		if len(top) != 1 {
			t.Fatalf("expected 1 context, got %d", len(top))
		}
	})

	t.Run("sin pasajes", func(t *testing.T) {
		content, top := BuildDegradedAnswer(nil)
		if len(top) != 0 || !strings.HasPrefix(content, DegradedNotice) {
			t.Fatalf("unexpected degraded answer %q %+v", content, top)
		}
	})
}
