// Package chat is the application service behind the CLI: it keeps the
// current session, the enabled tool set, and runs messages through the tool
// loop.
package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/config"
	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/events"
	"github.com/go-go-golems/trustagent/pkg/inference/engine"
	"github.com/go-go-golems/trustagent/pkg/inference/engine/factory"
	"github.com/go-go-golems/trustagent/pkg/inference/middleware"
	"github.com/go-go-golems/trustagent/pkg/inference/systemprompt"
	"github.com/go-go-golems/trustagent/pkg/inference/toolloop"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
	"github.com/go-go-golems/trustagent/pkg/sessions"
	"github.com/go-go-golems/trustagent/pkg/tokens"
)

// ErrSessionBusy is returned when a session already has a message in flight.
var ErrSessionBusy = errors.New("session already has an active run")

// SessionStore is the part of sessions.Store the service needs.
type SessionStore interface {
	Save(ctx context.Context, session *sessions.Session) error
	Get(ctx context.Context, id string) (*sessions.Session, error)
}

// EngineBuilder creates the completion engine for one message.
type EngineBuilder func(cfg *config.Config) (engine.Engine, error)

// DefaultEngineBuilder builds an OpenAI compatible engine with request
// logging and token accounting.
func DefaultEngineBuilder(cfg *config.Config) (engine.Engine, error) {
	s := cfg.StepSettings()
	mws := []middleware.Middleware{middleware.NewLoggingMiddleware(log.Logger)}

	counter, err := tokens.NewCounter(cfg.OpenAI.Model, "")
	if err != nil {
		log.Debug().Err(err).Str("model", cfg.OpenAI.Model).Msg("no tokenizer for model, token accounting disabled")
	} else {
		mws = append(mws, middleware.NewTokenCountingMiddleware(counter, nil))
	}

	return factory.NewEngineFromStepSettings(s, mws...)
}

// Reply is the answer to one message.
type Reply struct {
	SessionID string
	RunID     string
	Answer    string
	Rounds    int
}

// ToolState is a discovered tool and whether it is offered to the model.
type ToolState struct {
	Descriptor tools.ToolDescriptor `json:"tool" yaml:"tool"`
	Enabled    bool                 `json:"enabled" yaml:"enabled"`
}

type Service struct {
	cfg       *config.Store
	registry  *tools.Registry
	store     SessionStore
	newEngine EngineBuilder
	sinks     []events.EventSink

	mu         sync.Mutex
	current    *sessions.Session
	toolStates map[string]bool
	// ids of sessions with a run in flight
	active map[string]bool
}

type Option func(*Service)

func WithEngineBuilder(b EngineBuilder) Option {
	return func(s *Service) {
		s.newEngine = b
	}
}

func WithEventSinks(sinks ...events.EventSink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

func NewService(cfg *config.Store, registry *tools.Registry, store SessionStore, options ...Option) *Service {
	if cfg == nil {
		cfg = config.NewStore(nil)
	}
	s := &Service{
		cfg:        cfg,
		registry:   registry,
		store:      store,
		newEngine:  DefaultEngineBuilder,
		toolStates: map[string]bool{},
		active:     map[string]bool{},
		current:    sessions.New(),
	}
	if s.registry == nil {
		s.registry = tools.NewRegistry()
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// CurrentSession returns a copy of the session new messages go to.
func (s *Service) CurrentSession() *sessions.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.current)
}

// SendMessage runs text through the tool loop in the context of the session
// and persists the user message and the final answer. An empty sessionID
// targets the current session. A failed run leaves the session unchanged.
// Only one message per session runs at a time, a second one gets
// ErrSessionBusy.
func (s *Service) SendMessage(ctx context.Context, sessionID string, text string) (*Reply, error) {
	cfg := s.cfg.Snapshot()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer s.release(id)

	session, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	eng, err := s.newEngine(cfg)
	if err != nil {
		return nil, errors.Wrap(config.ErrConfiguration, err.Error())
	}

	snapshot := s.registry.Snapshot()
	descriptors := s.enabled(snapshot.Descriptors(), cfg.Agent.DisabledTools)

	loop := toolloop.New(
		toolloop.WithEngine(eng),
		toolloop.WithRouter(tools.NewRouter(tools.WithRouterConfig(cfg.RouterConfig()))),
		toolloop.WithLoopConfig(cfg.LoopConfig()),
		toolloop.WithEventSinks(s.sinks...),
	)

	ctx = events.WithEventMetadata(ctx, events.EventMetadata{
		SessionID: session.ID,
		Model:     cfg.OpenAI.Model,
	})

	instructions, err := systemprompt.RenderInstructions(cfg.Agent.Instructions, systemprompt.InstructionData{
		Now:          time.Now(),
		Model:        cfg.OpenAI.Model,
		SessionTitle: session.Title,
		Tools:        descriptors,
	})
	if err != nil {
		return nil, errors.Wrapf(config.ErrConfiguration, "agent.instructions: %v", err)
	}

	var history []conversation.Turn
	if instructions != "" {
		history = append(history, conversation.NewSystemTurn(instructions))
	}
	history = append(history, session.Turns()...)
	history = append(history, conversation.NewUserTurn(text))
	log.Debug().Str("session_id", session.ID).Int("history", len(history)).Int("tools", len(descriptors)).
		Msg("chat: sending message")

	res, err := loop.Run(ctx, history, descriptors, s.registry)
	if err != nil {
		return nil, err
	}

	session.Append(conversation.RoleUser, text)
	session.Append(conversation.RoleAssistant, res.Answer)
	if session.Title == sessions.DefaultTitle {
		session.Title = sessions.GenerateTitle(session.Messages)
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, errors.Wrap(err, "could not save session")
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == session.ID {
		s.current = copySession(session)
	}
	s.mu.Unlock()

	return &Reply{
		SessionID: session.ID,
		RunID:     res.RunID,
		Answer:    res.Answer,
		Rounds:    res.Rounds,
	}, nil
}

// acquire marks the session as running. An empty id resolves to the current
// session.
func (s *Service) acquire(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = s.current.ID
	}
	if s.active[id] {
		return "", errors.Wrap(ErrSessionBusy, id)
	}
	s.active[id] = true
	return id, nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

func (s *Service) session(ctx context.Context, id string) (*sessions.Session, error) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		ret := copySession(s.current)
		s.mu.Unlock()
		return ret, nil
	}
	s.mu.Unlock()
	return s.store.Get(ctx, id)
}

// NewChat finalises the current session and starts an empty one.
func (s *Service) NewChat(ctx context.Context) (*sessions.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.finalizeLocked(ctx); err != nil {
		return nil, err
	}
	s.current = sessions.New()
	return copySession(s.current), nil
}

// SelectSession makes a stored session the current one. The previous
// session is finalised first.
func (s *Service) SelectSession(ctx context.Context, id string) (*sessions.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.ID == id {
		return copySession(s.current), nil
	}

	selected, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.finalizeLocked(ctx); err != nil {
		return nil, err
	}
	s.current = selected
	return copySession(selected), nil
}

// finalizeLocked drops an empty current session and saves a non-empty one,
// generating its title if it still has the default one. A current session
// with a run in flight cannot be finalised.
func (s *Service) finalizeLocked(ctx context.Context) error {
	cur := s.current
	if cur == nil {
		return nil
	}
	if s.active[cur.ID] {
		return errors.Wrap(ErrSessionBusy, cur.ID)
	}
	if cur.IsEmpty() {
		return nil
	}
	if cur.Title == sessions.DefaultTitle {
		cur.Title = sessions.GenerateTitle(cur.Messages)
	}
	cur.UpdatedAt = time.Now()
	return s.store.Save(ctx, cur)
}

// SetToolEnabled enables or disables the tool "<server>/<tool>".
func (s *Service) SetToolEnabled(key string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolStates[key] = enabled
}

// ToolEnabled reports whether a tool is offered. An explicit SetToolEnabled
// wins, then the agent.disabled_tools patterns apply; everything else is
// enabled.
func (s *Service) ToolEnabled(key string) bool {
	patterns := s.cfg.Snapshot().Agent.DisabledTools
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabledLocked(key, patterns)
}

func (s *Service) enabledLocked(key string, disabledPatterns []string) bool {
	if enabled, ok := s.toolStates[key]; ok {
		return enabled
	}
	for _, pattern := range disabledPatterns {
		matched, err := glob.Match(pattern, key)
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("invalid disabled_tools pattern")
			continue
		}
		if matched {
			return false
		}
	}
	return true
}

// Tools lists every discovered tool with its state, sorted by key.
func (s *Service) Tools() []ToolState {
	ds := s.registry.Descriptors()
	patterns := s.cfg.Snapshot().Agent.DisabledTools

	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]ToolState, 0, len(ds))
	for _, d := range ds {
		ret = append(ret, ToolState{Descriptor: d, Enabled: s.enabledLocked(d.Key(), patterns)})
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Descriptor.Key() < ret[j].Descriptor.Key()
	})
	return ret
}

func (s *Service) enabled(ds []tools.ToolDescriptor, disabledPatterns []string) []tools.ToolDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]tools.ToolDescriptor, 0, len(ds))
	for _, d := range ds {
		if s.enabledLocked(d.Key(), disabledPatterns) {
			ret = append(ret, d)
		}
	}
	return ret
}

func copySession(in *sessions.Session) *sessions.Session {
	if in == nil {
		return nil
	}
	out := *in
	out.Messages = append([]sessions.Message(nil), in.Messages...)
	return &out
}
