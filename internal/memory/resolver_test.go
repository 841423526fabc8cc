package memory

import (
	"strings"
	"testing"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

func assistantTurn(topic string) domain.Turn {
	return domain.Turn{
		Role:     domain.RoleAssistant,
		Text:     "respuesta",
		Metadata: domain.TurnMetadata{Topic: topic},
	}
}

func TestResolveFollowUpUsesAssistantTopic(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Text: "qué es robótica"},
		assistantTurn("Ingeniería en Robótica"),
	}

	resolved, rewritten := Resolve("¿y eso cuánto dura?", turns)
	if !rewritten {
		t.Fatal("expected a rewrite")
	}
	if !strings.Contains(resolved, "Ingeniería en Robótica") {
		t.Fatalf("resolved query %q does not reference the topic", resolved)
	}
	if !strings.Contains(resolved, "cuánto dura") {
		t.Fatalf("resolved query %q lost the duration sub-intent", resolved)
	}
}

func TestResolveWorkSubIntent(t *testing.T) {
	turns := []domain.Turn{assistantTurn("Biotecnología")}

	resolved, rewritten := Resolve("y eso, hay trabajo?", turns)
	if !rewritten {
		t.Fatal("expected a rewrite")
	}
	if !strings.Contains(resolved, "profesional en Biotecnología") {
		t.Fatalf("resolved query %q missing work template", resolved)
	}
}

func TestResolveBareConfirmation(t *testing.T) {
	turns := []domain.Turn{assistantTurn("Ciencia de Datos")}

	resolved, rewritten := Resolve("sí", turns)
	if !rewritten {
		t.Fatal("expected a rewrite")
	}
	if resolved != "información sobre Ciencia de Datos" {
		t.Fatalf("resolved = %q", resolved)
	}
}

func TestResolveAbbreviation(t *testing.T) {
	resolved, rewritten := Resolve("la de ia", nil)
	if !rewritten {
		t.Fatal("expected a rewrite")
	}
	if resolved != "¿qué es inteligencia artificial?" {
		t.Fatalf("resolved = %q", resolved)
	}
}

func TestResolveNoOpWithoutTopic(t *testing.T) {
	resolved, rewritten := Resolve("sí", nil)
	if rewritten {
		t.Fatalf("expected pass-through, got %q", resolved)
	}
	if resolved != "sí" {
		t.Fatalf("resolved = %q, want raw query back", resolved)
	}
}

func TestResolveSelfContainedQueryPassesThrough(t *testing.T) {
	turns := []domain.Turn{assistantTurn("Nanotecnología")}

	raw := "cuáles son los requisitos de inscripción para nuevo ingreso"
	resolved, rewritten := Resolve(raw, turns)
	if rewritten || resolved != raw {
		t.Fatalf("self-contained query was rewritten to %q", resolved)
	}
}

func TestResolveUsesCategoryWhenTopicMissing(t *testing.T) {
	turns := []domain.Turn{{
		Role:     domain.RoleAssistant,
		Text:     "hablamos de carreras",
		Metadata: domain.TurnMetadata{Category: "carreras"},
	}}

	resolved, rewritten := Resolve("dame más", turns)
	if !rewritten {
		t.Fatal("expected a rewrite")
	}
	if !strings.Contains(resolved, "carreras") {
		t.Fatalf("resolved = %q, want category reference", resolved)
	}
}
