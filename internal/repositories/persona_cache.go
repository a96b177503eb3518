package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/velvethub/backend/internal/models"
)

type personaCacheEntry struct {
	persona models.Persona
	expires time.Time
}

// CachingPersonaRepository wraps another PersonaRepository with a TTL-based
// in-memory cache. Personas are immutable within a chat session, so every
// turn of a conversation can reuse the same record without a database trip.
type CachingPersonaRepository struct {
	base PersonaRepository
	ttl  time.Duration

	mu     sync.RWMutex
	byID   map[string]personaCacheEntry
	bySlug map[string]personaCacheEntry
}

// NewCachingPersonaRepository returns a PersonaRepository that caches lookups
// for the provided TTL.
func NewCachingPersonaRepository(base PersonaRepository, ttl time.Duration) *CachingPersonaRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingPersonaRepository{
		base:   base,
		ttl:    ttl,
		byID:   make(map[string]personaCacheEntry),
		bySlug: make(map[string]personaCacheEntry),
	}
}

// GetByID returns a cached persona when fresh, otherwise it delegates to the
// underlying repository and stores the result.
func (c *CachingPersonaRepository) GetByID(ctx context.Context, id string) (models.Persona, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.byID[id]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.persona, nil
	}

	persona, err := c.base.GetByID(ctx, id)
	if err != nil {
		return models.Persona{}, err
	}

	c.store(persona, now)
	return persona, nil
}

// GetBySlug mirrors GetByID for slug lookups.
func (c *CachingPersonaRepository) GetBySlug(ctx context.Context, slug string) (models.Persona, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.bySlug[slug]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.persona, nil
	}

	persona, err := c.base.GetBySlug(ctx, slug)
	if err != nil {
		return models.Persona{}, err
	}

	c.store(persona, now)
	return persona, nil
}

// List always delegates; listings are cheap relative to per-turn lookups.
func (c *CachingPersonaRepository) List(ctx context.Context, contentRating string) ([]models.Persona, error) {
	return c.base.List(ctx, contentRating)
}

func (c *CachingPersonaRepository) store(persona models.Persona, now time.Time) {
	entry := personaCacheEntry{persona: persona, expires: now.Add(c.ttl)}
	c.mu.Lock()
	c.byID[persona.ID] = entry
	if persona.Slug != "" {
		c.bySlug[persona.Slug] = entry
	}
	c.mu.Unlock()
}

var _ PersonaRepository = (*CachingPersonaRepository)(nil)
