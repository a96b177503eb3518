package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/velvethub/backend/internal/db"
	"github.com/velvethub/backend/internal/models"
)

// PostgresPersonaRepository provides PostgreSQL-backed persistence for personas.
type PostgresPersonaRepository struct {
	pool db.Pool
}

// NewPostgresPersonaRepository constructs a persona repository backed by PostgreSQL.
func NewPostgresPersonaRepository(pool db.Pool) *PostgresPersonaRepository {
	return &PostgresPersonaRepository{pool: pool}
}

const personaColumns = `
        id, slug, name, age, occupation, description,
        appearance, backstory, personality, traits, core_motivations,
        vals, likes, dislikes, hobbies, fears,
        boundaries, speech_style, example_dialogue, one_liners,
        content_rating, model_provider, model_name, temperature, max_tokens,
        intro_video_url, intro_poster_url, voice_id, voice_model, created_at`

// GetByID fetches a persona by its identifier.
func (r *PostgresPersonaRepository) GetByID(ctx context.Context, id string) (models.Persona, error) {
	return r.getByField(ctx, "id", id)
}

// GetBySlug fetches a persona by its URL slug.
func (r *PostgresPersonaRepository) GetBySlug(ctx context.Context, slug string) (models.Persona, error) {
	return r.getByField(ctx, "slug", slug)
}

func (r *PostgresPersonaRepository) getByField(ctx context.Context, field, value string) (models.Persona, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Persona{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE `+field+` = $1`, value)

	persona, err := scanPersona(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Persona{}, ErrNotFound
		}
		return models.Persona{}, fmt.Errorf("select persona by %s: %w", field, err)
	}

	return persona, nil
}

// List returns personas, optionally filtered to one content rating.
func (r *PostgresPersonaRepository) List(ctx context.Context, contentRating string) ([]models.Persona, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var rows pgx.Rows
	if contentRating == "" {
		rows, err = conn.Query(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY name ASC`)
	} else {
		rows, err = conn.Query(ctx, `SELECT `+personaColumns+` FROM personas WHERE content_rating = $1 ORDER BY name ASC`, contentRating)
	}
	if err != nil {
		return nil, fmt.Errorf("query personas: %w", err)
	}
	defer rows.Close()

	var personas []models.Persona
	for rows.Next() {
		persona, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		personas = append(personas, persona)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personas: %w", err)
	}

	return personas, nil
}

func scanPersona(row pgx.Row) (models.Persona, error) {
	var p models.Persona
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Age, &p.Occupation, &p.Description,
		&p.Appearance, &p.Backstory, &p.Personality, &p.Traits, &p.CoreMotivations,
		&p.Values, &p.Likes, &p.Dislikes, &p.Hobbies, &p.Fears,
		&p.Boundaries, &p.SpeechStyle, &p.ExampleDialogue, &p.OneLiners,
		&p.ContentRating, &p.ModelProvider, &p.ModelName, &p.Temperature, &p.MaxTokens,
		&p.IntroVideoURL, &p.IntroPosterURL, &p.VoiceID, &p.VoiceModel, &p.CreatedAt,
	)
	if err != nil {
		return models.Persona{}, err
	}
	return p, nil
}

// PostgresScenarioRepository provides PostgreSQL-backed persistence for scenarios.
type PostgresScenarioRepository struct {
	pool db.Pool
}

// NewPostgresScenarioRepository constructs a scenario repository backed by PostgreSQL.
func NewPostgresScenarioRepository(pool db.Pool) *PostgresScenarioRepository {
	return &PostgresScenarioRepository{pool: pool}
}

// ListForPersona returns a persona's scenarios in reverse chronological order.
func (r *PostgresScenarioRepository) ListForPersona(ctx context.Context, personaID string) ([]models.Scenario, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, persona_id, scene_name, description, opener, video_slug, image_slug, audio_slug, mood, is_premium, created_at
        FROM scenarios
        WHERE persona_id = $1
        ORDER BY created_at DESC
    `, personaID)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []models.Scenario
	for rows.Next() {
		var s models.Scenario
		if err := rows.Scan(&s.ID, &s.PersonaID, &s.SceneName, &s.Description, &s.Opener, &s.VideoSlug, &s.ImageSlug, &s.AudioSlug, &s.Mood, &s.Premium, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		scenarios = append(scenarios, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}

	return scenarios, nil
}

// PostgresClientSessionRepository registers client session identifiers.
type PostgresClientSessionRepository struct {
	pool db.Pool
}

// NewPostgresClientSessionRepository constructs a client session repository backed by PostgreSQL.
func NewPostgresClientSessionRepository(pool db.Pool) *PostgresClientSessionRepository {
	return &PostgresClientSessionRepository{pool: pool}
}

// Register inserts a session identifier. A unique violation means the session
// was registered before, which counts as success.
func (r *PostgresClientSessionRepository) Register(ctx context.Context, sessionID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO client_sessions (session_id, created_at)
        VALUES ($1, NOW())
    `, sessionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("insert client session: %w", err)
	}

	return nil
}

var _ PersonaRepository = (*PostgresPersonaRepository)(nil)
var _ ScenarioRepository = (*PostgresScenarioRepository)(nil)
var _ ClientSessionRepository = (*PostgresClientSessionRepository)(nil)
