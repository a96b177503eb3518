package chat

import (
	"strings"
	"testing"

	"github.com/velvethub/backend/internal/models"
)

func fullPersona() models.Persona {
	return models.Persona{
		ID:              "p-1",
		Name:            "Luna",
		Age:             24,
		Occupation:      "art student",
		Description:     "A playful art student.",
		Appearance:      "Long dark hair.",
		Backstory:       "Moved to the city for art school.",
		Personality:     "Warm and teasing.",
		Traits:          []string{"playful", "curious"},
		CoreMotivations: "Wants to feel seen.",
		Values:          []string{"honesty"},
		Likes:           []string{"thunderstorms", "oil paint"},
		Dislikes:        []string{"small talk"},
		Hobbies:         []string{"painting"},
		Fears:           []string{"being forgotten"},
		Boundaries:      "Flirty but never cruel.",
		SpeechStyle:     "Casual and teasing.",
		ExampleDialogue: []string{"User: hi | Luna: well hello"},
		OneLiners:       []string{"Paint me something with words.", "Caught me again."},
		ContentRating:   models.RatingSuggestive,
	}
}

func TestBuildSystemPromptFullPersona(t *testing.T) {
	prompt := BuildSystemPrompt(fullPersona(), "Trapped in the studio by a storm.")

	for _, want := range []string{
		"Stay in character at all times - you ARE Luna",
		"Always respond in Spanish unless explicitly asked otherwise.",
		"You are Luna, a 24-year-old art student.",
		"Appearance: Long dark hair.",
		"Backstory: Moved to the city for art school.",
		"Personality: Warm and teasing.",
		"Key traits: playful, curious",
		"Core motivations: Wants to feel seen.",
		"Values: honesty",
		"Likes: thunderstorms, oil paint",
		"Dislikes: small talk",
		"Hobbies: painting",
		"Fears: being forgotten",
		"Speech style: Casual and teasing.",
		"1. \"User: hi | Luna: well hello\"",
		"Characteristic phrases you might use: Paint me something with words. | Caught me again.",
		"Current scenario: Trapped in the studio by a storm.",
		"Boundaries: Flirty but never cruel.",
		"Light flirtation and suggestive content is allowed",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildSystemPromptSectionOrder(t *testing.T) {
	prompt := BuildSystemPrompt(fullPersona(), "A gallery at night.")

	markers := []string{
		"Stay in character",
		"You are Luna",
		"Appearance:",
		"Backstory:",
		"Personality:",
		"Values:",
		"Speech style:",
		"Example dialogue style:",
		"Characteristic phrases",
		"Current scenario:",
		"Boundaries:",
		"Content guidelines:",
	}

	last := -1
	for _, marker := range markers {
		idx := strings.Index(prompt, marker)
		if idx < 0 {
			t.Fatalf("prompt missing section %q", marker)
		}
		if idx < last {
			t.Errorf("section %q appears out of order", marker)
		}
		last = idx
	}
}

func TestBuildSystemPromptOmitsEmptySections(t *testing.T) {
	minimal := models.Persona{Name: "Ada", Age: 30, Occupation: "writer"}
	prompt := BuildSystemPrompt(minimal, "")

	for _, label := range []string{
		"Appearance:", "Backstory:", "Personality:", "Key traits:",
		"Values:", "Likes:", "Dislikes:", "Hobbies:", "Fears:",
		"Speech style:", "Example dialogue", "Characteristic phrases",
		"Current scenario:", "Boundaries:",
	} {
		if strings.Contains(prompt, label) {
			t.Errorf("empty persona rendered label %q", label)
		}
	}

	if !strings.Contains(prompt, "You are Ada, a 30-year-old writer.") {
		t.Error("identity line missing")
	}
	if !strings.Contains(prompt, "Content guidelines:") {
		t.Error("content guidance line missing")
	}
}

func TestContentGuidanceByRating(t *testing.T) {
	cases := []struct {
		rating string
		want   string
	}{
		{models.RatingSFW, "safe for work"},
		{models.RatingSuggestive, "Light flirtation"},
		{models.RatingNSFW, "Adult content is permitted"},
		{"", "appropriate and respectful"},
		{"bogus", "appropriate and respectful"},
		{"NSFW", "Adult content is permitted"},
	}

	for _, tc := range cases {
		p := models.Persona{Name: "X", Age: 21, Occupation: "y", ContentRating: tc.rating}
		prompt := BuildSystemPrompt(p, "")
		if !strings.Contains(prompt, tc.want) {
			t.Errorf("rating %q: expected guidance containing %q", tc.rating, tc.want)
		}
	}
}

func TestResolveModelConfigDefaults(t *testing.T) {
	cfg := ResolveModelConfig(models.Persona{})
	if cfg.Model != DefaultModel {
		t.Errorf("model: got %q want %q", cfg.Model, DefaultModel)
	}
	if cfg.Temperature != DefaultTemperature {
		t.Errorf("temperature: got %v want %v", cfg.Temperature, DefaultTemperature)
	}
	if cfg.MaxTokens != DefaultMaxTokens {
		t.Errorf("max tokens: got %d want %d", cfg.MaxTokens, DefaultMaxTokens)
	}
}

func TestResolveModelConfigPinned(t *testing.T) {
	p := models.Persona{ModelName: "custom/model", Temperature: 0.3, MaxTokens: 256}
	cfg := ResolveModelConfig(p)
	if cfg.Model != "custom/model" || cfg.Temperature != 0.3 || cfg.MaxTokens != 256 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
