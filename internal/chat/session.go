package chat

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velvethub/backend/internal/models"
)

// State is the single session state value. Transitions happen only through
// session events, which rules out impossible combinations such as awaiting a
// reply while the intro video is still gating the conversation.
type State int

const (
	// StateIntroVideo gates the conversation behind the persona's intro
	// clip. Entered only when the persona has one and the viewer has not
	// dismissed or completed it.
	StateIntroVideo State = iota
	// StateScenarioOpening renders the scenario description and opener as
	// two sequential assistant bubbles.
	StateScenarioOpening
	// StateConversing is the free-form turn exchange.
	StateConversing
)

func (s State) String() string {
	switch s {
	case StateIntroVideo:
		return "intro-video"
	case StateScenarioOpening:
		return "scenario-opening"
	case StateConversing:
		return "conversing"
	default:
		return "unknown"
	}
}

// Message is one session-local chat bubble. Messages live only for the
// session; AudioURL is patched in once if background synthesis succeeds.
type Message struct {
	ID        string
	Role      string
	Text      string
	AudioURL  string
	CreatedAt time.Time

	// opening marks the scenario-opening bubbles so a re-roll can reset
	// them without touching accumulated conversation turns.
	opening bool
}

// TurnSender performs the one server round trip per assistant turn.
type TurnSender interface {
	SendTurn(ctx context.Context, personaID string, turns []Turn, scenarioDescription string) (string, error)
}

// SpeechSynthesizer converts reply text into a playable audio URL.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, modelID string) (string, error)
}

// Session manages turn-taking, intro-video gating, scenario presentation,
// and optional speech playback for one conversation.
type Session struct {
	mu sync.Mutex

	persona   models.Persona
	scenarios []models.Scenario
	active    *models.Scenario

	state         State
	awaitingReply bool
	messages      []Message
	lastError     string

	sender TurnSender
	speech SpeechSynthesizer
	audio  *AudioRegistry
	rng    *rand.Rand

	speechWG sync.WaitGroup
}

// SessionOption tweaks session construction.
type SessionOption func(*Session)

// WithRand injects a deterministic random source for scenario selection.
func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = rng }
}

// WithSpeech enables best-effort speech synthesis for assistant turns.
func WithSpeech(speech SpeechSynthesizer) SessionOption {
	return func(s *Session) { s.speech = speech }
}

// NewSession builds a session for one persona and its scenario pool and
// immediately runs the start transition: intro-video when the persona has an
// intro clip, otherwise straight to the scenario opening.
func NewSession(persona models.Persona, scenarios []models.Scenario, sender TurnSender, opts ...SessionOption) *Session {
	s := &Session{
		persona:   persona,
		scenarios: scenarios,
		sender:    sender,
		audio:     NewAudioRegistry(defaultAudioPoolSize),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if persona.IntroVideoURL != "" {
		s.state = StateIntroVideo
		return s
	}
	s.openScenarioLocked()
	return s
}

// FinishIntro records that the intro video completed or was dismissed and
// moves the session to the scenario opening. A no-op in any other state.
func (s *Session) FinishIntro() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIntroVideo {
		return
	}
	s.openScenarioLocked()
}

// openScenarioLocked picks a scenario uniformly at random and renders its
// description and opener as two assistant bubbles.
func (s *Session) openScenarioLocked() {
	if len(s.scenarios) == 0 {
		s.active = nil
		s.state = StateConversing
		return
	}

	scenario := s.scenarios[s.rng.Intn(len(s.scenarios))]
	s.active = &scenario
	s.appendOpeningLocked(scenario)
	s.state = StateScenarioOpening
}

func (s *Session) appendOpeningLocked(scenario models.Scenario) {
	now := time.Now()
	s.messages = append(s.messages,
		Message{ID: uuid.NewString(), Role: RoleAssistant, Text: scenario.Description, CreatedAt: now, opening: true},
		Message{ID: uuid.NewString(), Role: RoleAssistant, Text: scenario.Opener, CreatedAt: now, opening: true},
	)
}

// RerollScenario swaps the opening for a different scenario. When more than
// one scenario exists the current one is never selected again. Accumulated
// conversation turns stay visible; only the opening bubbles are reset.
func (s *Session) RerollScenario() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIntroVideo || len(s.scenarios) == 0 {
		return
	}

	next := s.pickDifferentLocked()
	s.active = &next

	// Reset the previous opening bubbles in place, preserving everything
	// exchanged since.
	replaced := 0
	for i := range s.messages {
		if !s.messages[i].opening {
			continue
		}
		switch replaced {
		case 0:
			s.messages[i].Text = next.Description
		case 1:
			s.messages[i].Text = next.Opener
		}
		replaced++
	}
	if replaced == 0 {
		s.appendOpeningLocked(next)
	}
}

func (s *Session) pickDifferentLocked() models.Scenario {
	if len(s.scenarios) == 1 {
		return s.scenarios[0]
	}
	for {
		candidate := s.scenarios[s.rng.Intn(len(s.scenarios))]
		if s.active == nil || candidate.ID != s.active.ID {
			return candidate
		}
	}
}

// Send submits one user turn. Whitespace-only input and sends while a reply
// is outstanding are silent no-ops; the bool reports whether a turn was
// actually sent. The user turn is appended optimistically and never rolled
// back; failures surface through Err and leave the input usable for a retry.
func (s *Session) Send(ctx context.Context, text string) (bool, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.awaitingReply || s.state == StateIntroVideo {
		s.mu.Unlock()
		return false, nil
	}

	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		CreatedAt: time.Now(),
	})
	s.awaitingReply = true
	s.state = StateConversing
	s.lastError = ""

	turns := s.historyLocked()
	scenarioDescription := ""
	if s.active != nil {
		scenarioDescription = s.active.Description
	}
	personaID := s.persona.ID
	s.mu.Unlock()

	reply, err := s.sender.SendTurn(ctx, personaID, turns, scenarioDescription)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitingReply = false

	if err != nil {
		s.lastError = err.Error()
		return true, err
	}

	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      reply,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)

	if s.speech != nil && s.persona.VoiceID != "" {
		s.synthesizeLocked(msg.ID, reply)
	}

	return true, nil
}

// synthesizeLocked fires the background speech request for one turn. The
// turn is already visible; on success its audio URL is patched in, on
// failure the turn simply stays textual.
func (s *Session) synthesizeLocked(messageID, text string) {
	voiceID := s.persona.VoiceID
	voiceModel := s.persona.VoiceModel

	s.speechWG.Add(1)
	go func() {
		defer s.speechWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		audioURL, err := s.speech.Synthesize(ctx, text, voiceID, voiceModel)
		if err != nil || audioURL == "" {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.messages {
			if s.messages[i].ID == messageID {
				s.messages[i].AudioURL = audioURL
				return
			}
		}
	}()
}

// PlayAudio starts playback for one turn's audio, pausing whatever was
// playing. Turns without synthesized audio are a no-op.
func (s *Session) PlayAudio(messageID string) bool {
	s.mu.Lock()
	var url string
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			url = s.messages[i].AudioURL
			break
		}
	}
	s.mu.Unlock()

	if url == "" {
		return false
	}
	s.audio.Play(messageID, url)
	return true
}

// WaitForSpeech blocks until all in-flight speech requests settle. Intended
// for tests and graceful shutdown.
func (s *Session) WaitForSpeech() {
	s.speechWG.Wait()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AwaitingReply reports whether a main-turn request is outstanding.
func (s *Session) AwaitingReply() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingReply
}

// ActiveScenario returns the currently displayed scenario, if any.
func (s *Session) ActiveScenario() (models.Scenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.Scenario{}, false
	}
	return *s.active, true
}

// Messages returns a snapshot of the visible bubbles.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Err returns the dismissible error banner text, empty when none.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// DismissErr clears the error banner.
func (s *Session) DismissErr() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

// historyLocked renders the visible turns as provider history, role and text
// only. System turns are excluded; the server builds its own.
func (s *Session) historyLocked() []Turn {
	turns := make([]Turn, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Role == RoleSystem {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Content: m.Text})
	}
	return turns
}
