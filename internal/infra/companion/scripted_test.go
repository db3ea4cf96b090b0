package companion

import (
	"context"
	"testing"

	"github.com/questforge/platform-guard/internal/core/domain"
)

func TestScriptedAgent_Answer_LocalizedScript(t *testing.T) {
	agent := NewScriptedAgent()

	en, err := agent.Answer(context.Background(), domain.CompanionQuery{
		Text:     "how do quests work",
		Category: domain.CategoryQuestHelp,
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	es, err := agent.Answer(context.Background(), domain.CompanionQuery{
		Text:     "como funcionan las misiones",
		Category: domain.CategoryQuestHelp,
		Language: "es",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if en.Reply == "" || es.Reply == "" {
		t.Fatal("expected non-empty replies")
	}
	if en.Reply == es.Reply {
		t.Error("expected distinct scripts per language")
	}
}

func TestScriptedAgent_Answer_FallsBackToEnglish(t *testing.T) {
	agent := NewScriptedAgent()

	de, err := agent.Answer(context.Background(), domain.CompanionQuery{
		Text:     "wo ist mein profil",
		Category: domain.CategoryNavigation,
		Language: "de",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	en, err := agent.Answer(context.Background(), domain.CompanionQuery{
		Text:     "where is my profile",
		Category: domain.CategoryNavigation,
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if de.Reply != en.Reply {
		t.Errorf("Reply = %q, want English fallback %q", de.Reply, en.Reply)
	}
}

func TestScriptedAgent_Answer_UnknownCategoryUsesGeneral(t *testing.T) {
	agent := NewScriptedAgent()

	reply, err := agent.Answer(context.Background(), domain.CompanionQuery{
		Text:     "can I pay by card",
		Category: "billing",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	general, _ := agent.Answer(context.Background(), domain.CompanionQuery{
		Text:     "hello",
		Category: domain.CategoryGeneral,
		Language: "en",
	})
	if reply.Reply != general.Reply {
		t.Errorf("Reply = %q, want general script", reply.Reply)
	}
}

func TestScriptedAgent_Answer_CancelledContext(t *testing.T) {
	agent := NewScriptedAgent()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := agent.Answer(ctx, domain.CompanionQuery{Text: "hi"}); err == nil {
		t.Fatal("expected context error")
	}
}
