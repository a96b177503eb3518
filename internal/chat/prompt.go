// Package chat implements the companion conversation flow: system prompt
// assembly from a persona record, the completion provider client, and the
// per-session state machine.
package chat

import (
	"fmt"
	"strings"

	"github.com/velvethub/backend/internal/models"
)

// DefaultModel is used when a persona does not pin a model name.
const DefaultModel = "meta-llama/llama-3.1-8b-instruct:free"

// Defaults applied when a persona leaves sampling settings unset.
const (
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 500
)

// BuildSystemPrompt assembles the system instruction block for one persona,
// in fixed section order. Sections whose source field is empty are omitted
// entirely; no section ever renders as a bare label.
func BuildSystemPrompt(p models.Persona, scenarioDescription string) string {
	var sections []string

	sections = append(sections, fmt.Sprintf(`Stay in character at all times - you ARE %s
1. Always respond in Spanish unless explicitly asked otherwise.
2. Keep responses conversational (2-4 sentences typically)
3. Be warm, engaging, and emotionally present
4. Don't break the fourth wall or mention being an AI
5. Show personality through your reactions and speech
6. Reference your likes/dislikes naturally in conversation
7. Reference your current scenario naturally`, p.Name))

	sections = append(sections, fmt.Sprintf("\nYou are %s, a %d-year-old %s.", p.Name, p.Age, p.Occupation))

	if p.Description != "" {
		sections = append(sections, p.Description)
	}
	if p.Appearance != "" {
		sections = append(sections, "\nAppearance: "+p.Appearance)
	}
	if p.Backstory != "" {
		sections = append(sections, "\nBackstory: "+p.Backstory)
	}

	var personality []string
	if p.Personality != "" {
		personality = append(personality, "Personality: "+p.Personality)
	}
	if line := listLine("Key traits", p.Traits); line != "" {
		personality = append(personality, line)
	}
	if p.CoreMotivations != "" {
		personality = append(personality, "Core motivations: "+p.CoreMotivations)
	}
	if len(personality) > 0 {
		sections = append(sections, "\n"+strings.Join(personality, "\n"))
	}

	var preferences []string
	for _, entry := range []struct {
		label string
		items []string
	}{
		{"Values", p.Values},
		{"Likes", p.Likes},
		{"Dislikes", p.Dislikes},
		{"Hobbies", p.Hobbies},
		{"Fears", p.Fears},
	} {
		if line := listLine(entry.label, entry.items); line != "" {
			preferences = append(preferences, line)
		}
	}
	if len(preferences) > 0 {
		sections = append(sections, "\n"+strings.Join(preferences, "\n"))
	}

	if p.SpeechStyle != "" {
		sections = append(sections, "\nSpeech style: "+p.SpeechStyle)
	}

	if len(p.ExampleDialogue) > 0 {
		var b strings.Builder
		b.WriteString("\nExample dialogue style:\n")
		for i, example := range p.ExampleDialogue {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%d. %q", i+1, example)
		}
		sections = append(sections, b.String())
	}

	if len(p.OneLiners) > 0 {
		sections = append(sections, "\nCharacteristic phrases you might use: "+strings.Join(p.OneLiners, " | "))
	}

	if scenarioDescription != "" {
		sections = append(sections, "\nCurrent scenario: "+scenarioDescription)
	}

	if p.Boundaries != "" {
		sections = append(sections, "\nBoundaries: "+p.Boundaries)
	}

	sections = append(sections, "\n"+contentGuidance(p.ContentRating))

	return strings.Join(sections, "\n")
}

func listLine(label string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return label + ": " + strings.Join(items, ", ")
}

// contentGuidance maps the persona's content rating to a guardrail sentence.
// Unrecognised ratings fall back to neutral guidance.
func contentGuidance(rating string) string {
	switch strings.ToLower(rating) {
	case models.RatingSFW:
		return "Content guidelines: Keep all interactions safe for work. Avoid explicit, sexual, or overly suggestive content."
	case models.RatingSuggestive:
		return "Content guidelines: Light flirtation and suggestive content is allowed, but avoid explicit sexual content."
	case models.RatingNSFW:
		return "Content guidelines: Adult content is permitted when contextually appropriate."
	default:
		return "Content guidelines: Keep interactions appropriate and respectful."
	}
}

// ModelConfig resolves the sampling configuration for one persona, applying
// defaults for unset fields.
type ModelConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ResolveModelConfig returns the persona's pinned model settings, falling
// back to service defaults where the record leaves them zero.
func ResolveModelConfig(p models.Persona) ModelConfig {
	cfg := ModelConfig{
		Model:       p.ModelName,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return cfg
}
