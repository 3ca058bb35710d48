// Package presence simulates collaborators viewing the same project.
//
// There is no presence channel behind it: other users are invented on a
// timer and expire after a fixed time to live. Only the local user's record
// reflects real input.
package presence

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"vantage/internal/models"
	"vantage/internal/telemetry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Palette is the fixed set of avatar colours.
var Palette = []string{
	"hsl(210, 100%, 50%)", // blue
	"hsl(140, 60%, 45%)",  // green
	"hsl(280, 60%, 55%)",  // purple
	"hsl(30, 90%, 55%)",   // orange
	"hsl(340, 75%, 55%)",  // pink
}

var (
	SimulatedNames = []string{"Alex", "Jordan", "Taylor", "Morgan"}
	SimulatedViews = []string{"feed", "decisions", "tensions"}
)

const (
	DefaultTickInterval    = 3 * time.Second
	DefaultStaleAfter      = 30 * time.Second
	DefaultMaxSimulated    = 3
	DefaultJoinProbability = 0.3

	LocalUserName = "Anonymous"
)

type Config struct {
	TickInterval    time.Duration
	StaleAfter      time.Duration
	MaxSimulated    int
	JoinProbability float64
}

func DefaultConfig() Config {
	return Config{
		TickInterval:    DefaultTickInterval,
		StaleAfter:      DefaultStaleAfter,
		MaxSimulated:    DefaultMaxSimulated,
		JoinProbability: DefaultJoinProbability,
	}
}

type Option func(*Simulator)

func WithConfig(cfg Config) Option {
	return func(s *Simulator) { s.cfg = cfg }
}

// WithRand makes the simulation deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// Simulator owns the presence state of one scope, usually a project, for
// one viewer. It is safe for concurrent use.
type Simulator struct {
	scope  string
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	users     map[string]models.PresenceUser
	local     models.PresenceUser
	observers []func(models.PresenceState)

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewSimulator initializes presence for scope: the local user gets a random
// palette colour and a generated id. Call Start to begin ticking.
func NewSimulator(scope string, opts ...Option) *Simulator {
	s := &Simulator{
		scope:  scope,
		cfg:    DefaultConfig(),
		now:    time.Now,
		logger: log.Logger,
		users:  make(map[string]models.PresenceUser),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.cfg.TickInterval <= 0 {
		s.cfg.TickInterval = DefaultTickInterval
	}
	s.logger = s.logger.With().Str("component", "presence").Str("scope", scope).Logger()

	s.local = models.PresenceUser{
		ID:       newUserID(),
		Name:     LocalUserName,
		Color:    pick(s.rng, Palette),
		LastSeen: s.now(),
	}
	return s
}

func newUserID() string {
	return "user-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

func pick(rng *rand.Rand, items []string) string {
	return items[rng.IntN(len(items))]
}

func (s *Simulator) Scope() string {
	return s.scope
}

// Start begins ticking every TickInterval. Calling it again has no effect.
func (s *Simulator) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

func (s *Simulator) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Stop tears the simulator down. It is idempotent and waits for a running
// tick loop to exit.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)

		started := true
		s.startOnce.Do(func() { started = false })
		if started {
			<-s.done
		}

		s.mu.Lock()
		remaining := len(s.users)
		s.mu.Unlock()
		telemetry.AddPresenceUsers(-remaining)
	})
}

// Tick runs one simulation step: maybe add a user, then evict stale ones.
func (s *Simulator) Tick() {
	s.mu.Lock()
	now := s.now()
	before := len(s.users)

	next := make(map[string]models.PresenceUser, before+1)
	for id, user := range s.users {
		next[id] = user
	}

	var joined *models.PresenceUser
	if s.rng.Float64() < s.cfg.JoinProbability && len(next) < s.cfg.MaxSimulated {
		user := models.PresenceUser{
			ID:          newUserID(),
			Name:        pick(s.rng, SimulatedNames),
			Color:       pick(s.rng, Palette),
			LastSeen:    now,
			CurrentView: pick(s.rng, SimulatedViews),
		}
		next[user.ID] = user
		joined = &user
	}

	s.users = EvictStale(now, next, s.cfg.StaleAfter)
	after := len(s.users)
	state := s.snapshotLocked()
	s.mu.Unlock()

	if joined != nil {
		s.logger.Debug().Str("user", joined.Name).Str("view", joined.CurrentView).Msg("simulated user joined")
	}
	telemetry.AddPresenceUsers(after - before)
	s.emit(state)
}

// EvictStale returns a new map without the users last seen more than
// staleAfter before now. The input map is not modified.
func EvictStale(now time.Time, users map[string]models.PresenceUser, staleAfter time.Duration) map[string]models.PresenceUser {
	out := make(map[string]models.PresenceUser, len(users))
	for id, user := range users {
		if now.Sub(user.LastSeen) > staleAfter {
			continue
		}
		out[id] = user
	}
	return out
}

func (s *Simulator) UpdateCursor(x, y float64) {
	s.updateLocal(func(u *models.PresenceUser) {
		u.Cursor = &models.Cursor{X: x, Y: y}
	})
}

func (s *Simulator) UpdateView(view string) {
	s.updateLocal(func(u *models.PresenceUser) {
		u.CurrentView = view
	})
}

func (s *Simulator) updateLocal(apply func(*models.PresenceUser)) {
	s.mu.Lock()
	local := s.local.Clone()
	apply(&local)
	local.LastSeen = s.now()
	s.local = local
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(state)
}

// Snapshot returns a copy of the current state.
func (s *Simulator) Snapshot() models.PresenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Simulator) snapshotLocked() models.PresenceState {
	users := make(map[string]models.PresenceUser, len(s.users))
	for id, user := range s.users {
		users[id] = user.Clone()
	}
	return models.PresenceState{
		Users:     users,
		LocalUser: s.local.Clone(),
	}
}

// OnChange registers fn to receive the state after every tick and local
// update.
func (s *Simulator) OnChange(fn func(models.PresenceState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Simulator) emit(state models.PresenceState) {
	s.mu.Lock()
	observers := make([]func(models.PresenceState), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
