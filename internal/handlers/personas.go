package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/velvethub/backend/internal/logging"
	"github.com/velvethub/backend/internal/models"
	"github.com/velvethub/backend/internal/repositories"
)

// PersonaHandler serves companion profiles and their scenario catalogs.
type PersonaHandler struct {
	Personas  PersonaStore
	Scenarios ScenarioStore
}

type personaSummary struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Occupation     string `json:"occupation"`
	Description    string `json:"description"`
	ContentRating  string `json:"content_rating"`
	IntroVideoURL  string `json:"intro_video_url"`
	IntroPosterURL string `json:"intro_poster_url"`
}

type personaDetail struct {
	personaSummary
	Appearance      string   `json:"appearance"`
	Backstory       string   `json:"backstory"`
	Personality     string   `json:"personality"`
	Traits          []string `json:"traits"`
	CoreMotivations string   `json:"core_motivations"`
	Values          []string `json:"values"`
	Likes           []string `json:"likes"`
	Dislikes        []string `json:"dislikes"`
	Hobbies         []string `json:"hobbies"`
	Fears           []string `json:"fears"`
	SpeechStyle     string   `json:"speech_style"`
	OneLiners       []string `json:"one_liners"`
	VoiceID         string   `json:"voice_id"`
	VoiceModel      string   `json:"voice_model"`
}

func toPersonaSummary(p models.Persona) personaSummary {
	return personaSummary{
		ID:             p.ID,
		Slug:           p.Slug,
		Name:           p.Name,
		Age:            p.Age,
		Occupation:     p.Occupation,
		Description:    p.Description,
		ContentRating:  p.ContentRating,
		IntroVideoURL:  p.IntroVideoURL,
		IntroPosterURL: p.IntroPosterURL,
	}
}

// List handles GET /api/v1/personas. An optional rating query parameter
// narrows the listing to a single content rating.
func (h PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Personas == nil {
		respondError(ctx, w, http.StatusInternalServerError, "persona services unavailable")
		return
	}

	rating := strings.TrimSpace(r.URL.Query().Get("rating"))
	personas, err := h.Personas.List(ctx, rating)
	if err != nil {
		logging.FromContext(ctx).Error("list personas failed", "rating", rating, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list personas")
		return
	}

	out := make([]personaSummary, 0, len(personas))
	for _, p := range personas {
		out = append(out, toPersonaSummary(p))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"personas": out})
}

// Get handles GET /api/v1/personas/{slug}.
func (h PersonaHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slug := strings.TrimSpace(r.PathValue("slug"))
	if slug == "" {
		respondError(ctx, w, http.StatusBadRequest, "persona slug is required")
		return
	}

	if h.Personas == nil {
		respondError(ctx, w, http.StatusInternalServerError, "persona services unavailable")
		return
	}

	persona, err := h.Personas.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "persona not found")
			return
		}
		logging.FromContext(ctx).Error("fetch persona failed", "slug", slug, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch persona")
		return
	}

	detail := personaDetail{
		personaSummary:  toPersonaSummary(persona),
		Appearance:      persona.Appearance,
		Backstory:       persona.Backstory,
		Personality:     persona.Personality,
		Traits:          persona.Traits,
		CoreMotivations: persona.CoreMotivations,
		Values:          persona.Values,
		Likes:           persona.Likes,
		Dislikes:        persona.Dislikes,
		Hobbies:         persona.Hobbies,
		Fears:           persona.Fears,
		SpeechStyle:     persona.SpeechStyle,
		OneLiners:       persona.OneLiners,
		VoiceID:         persona.VoiceID,
		VoiceModel:      persona.VoiceModel,
	}
	respondJSON(ctx, w, http.StatusOK, detail)
}

// ListScenarios handles GET /api/v1/personas/{id}/scenarios.
func (h PersonaHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personaID := strings.TrimSpace(r.PathValue("id"))
	if personaID == "" {
		respondError(ctx, w, http.StatusBadRequest, "persona id is required")
		return
	}

	if h.Scenarios == nil {
		respondError(ctx, w, http.StatusInternalServerError, "persona services unavailable")
		return
	}

	scenarios, err := h.Scenarios.ListForPersona(ctx, personaID)
	if err != nil {
		logging.FromContext(ctx).Error("list scenarios failed", "personaId", personaID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list scenarios")
		return
	}

	type scenarioResponse struct {
		ID          string `json:"id"`
		SceneName   string `json:"scene_name"`
		Description string `json:"description"`
		Opener      string `json:"opener"`
		Mood        string `json:"mood"`
		Premium     bool   `json:"is_premium"`
	}
	out := make([]scenarioResponse, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, scenarioResponse{
			ID:          s.ID,
			SceneName:   s.SceneName,
			Description: s.Description,
			Opener:      s.Opener,
			Mood:        s.Mood,
			Premium:     s.Premium,
		})
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"scenarios": out})
}
