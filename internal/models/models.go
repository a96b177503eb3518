package models

import "time"

// Video is a catalog entry for a clip hosted on the stream provider.
// DurationSeconds stays 0 until a reconciliation sweep observes the provider
// report the asset ready.
type Video struct {
	ID              string
	Title           string
	ThumbnailURL    string
	SliderURL       string
	StreamUID       string
	PlaybackURL     string
	DurationSeconds int
	CreatedAt       time.Time
}

// Category groups videos for browsing. Videos and categories are linked
// many-to-many through the video_categories join table.
type Category struct {
	ID   string
	Name string
}

// Persona is a companion character record driving chat tone, model choice,
// and content constraints. It is immutable from the chat session's
// perspective.
type Persona struct {
	ID          string
	Slug        string
	Name        string
	Age         int
	Occupation  string
	Description string

	Appearance      string
	Backstory       string
	Personality     string
	Traits          []string
	CoreMotivations string
	Values          []string
	Likes           []string
	Dislikes        []string
	Hobbies         []string
	Fears           []string
	Boundaries      string
	SpeechStyle     string
	ExampleDialogue []string
	OneLiners       []string

	ContentRating string

	ModelProvider string
	ModelName     string
	Temperature   float64
	MaxTokens     int

	IntroVideoURL  string
	IntroPosterURL string
	VoiceID        string
	VoiceModel     string

	CreatedAt time.Time
}

// Scenario is a persona-scoped vignette used to seed a chat session.
type Scenario struct {
	ID          string
	PersonaID   string
	SceneName   string
	Description string
	Opener      string
	VideoSlug   string
	ImageSlug   string
	AudioSlug   string
	Mood        string
	Premium     bool
	CreatedAt   time.Time
}

// ClientSession is a browser-generated identifier registered once for
// analytics. It carries no authentication meaning.
type ClientSession struct {
	SessionID string
	CreatedAt time.Time
}

// Content rating tags recognised by the prompt builder. Anything else falls
// back to neutral guidance.
const (
	RatingSFW        = "sfw"
	RatingSuggestive = "suggestive"
	RatingNSFW       = "nsfw"
)
