// Package scheduler keeps per-guild registries of one-shot deferred tasks and fires each of
// them at most once, at its deadline or on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"modhelper/model"
	"modhelper/snapshot"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound       = errors.New("task not found")
	ErrInvalidOrdinal = errors.New("ordinal must be at least 1")
	ErrNotPending     = errors.New("task is not pending")
	ErrClosed         = errors.New("scheduler is shut down")
)

// ReleaseFunc releases attachment files owned by a task that left its registry.
type ReleaseFunc func(files []string)

// Filter narrows task selection. Empty fields match any task.
type Filter struct {
	AuthorID  string
	ChannelID string
}

func (f Filter) match(t *Task) bool {
	if f.AuthorID != "" && t.AuthorID != f.AuthorID {
		return false
	}
	if f.ChannelID != "" && t.ChannelID != f.ChannelID {
		return false
	}
	return true
}

type guildTasks struct {
	mu    sync.Mutex
	tasks []*Task
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRelease sets the function releasing attachment files of finished tasks.
func WithRelease(fn ReleaseFunc) Option {
	return func(s *Scheduler) { s.release = fn }
}

// Scheduler owns the timers of every guild's tasks.
type Scheduler struct {
	env     Env
	clock   Clock
	release ReleaseFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	guilds map[string]*guildTasks

	closed   atomic.Bool
	inflight sync.WaitGroup
}

// New creates a scheduler firing actions against env.
func New(env Env, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		env:     env,
		clock:   realClock{},
		release: func([]string) {},
		ctx:     ctx,
		cancel:  cancel,
		guilds:  make(map[string]*guildTasks),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) guild(guildID string) *guildTasks {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guilds[guildID]
	if !ok {
		g = &guildTasks{}
		s.guilds[guildID] = g
	}
	return g
}

// Schedule validates a pending task, registers it and arms its timer. Command tasks are
// dry-run parsed by the dispatcher first; nothing is registered when that fails.
func (s *Scheduler) Schedule(t *Task) (*Task, error) {
	if t == nil || t.Action == nil {
		return nil, errors.New("task has no action")
	}
	if t.State() != StatePending || t.lock != nil {
		return nil, ErrNotPending
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if a, ok := t.Action.(*CommandAction); ok && s.env.Dispatcher != nil {
		if err := s.env.Dispatcher.Validate(t.GuildID, a.Command); err != nil {
			return nil, fmt.Errorf("invalid scheduled command: %w", err)
		}
	}
	if err := s.add(t); err != nil {
		return nil, err
	}
	log.Info().
		Str("guild", t.GuildID).
		Str("task", t.ID).
		Str("kind", t.Action.Kind()).
		Time("deadline", t.Deadline).
		Msg("task scheduled")
	return t, nil
}

// add registers and arms t.
func (s *Scheduler) add(t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	g := s.guild(t.GuildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	t.lock = &g.mu
	if t.done == nil {
		t.done = make(chan struct{})
	}
	g.tasks = append(g.tasks, t)
	s.armLocked(t)
	return nil
}

// armLocked must be called with the guild lock held.
func (s *Scheduler) armLocked(t *Task) {
	t.state = StateArmed
	delay := t.Deadline.Sub(s.clock.Now())
	if delay <= 0 {
		t.state = StateFiring
		s.inflight.Add(1)
		go s.execute(s.ctx, t)
		return
	}
	t.timer = s.clock.AfterFunc(delay, func() { s.onTimer(t) })
}

func (s *Scheduler) onTimer(t *Task) {
	t.lock.Lock()
	if t.state != StateArmed {
		t.lock.Unlock()
		return
	}
	t.state = StateFiring
	t.timer = nil
	s.inflight.Add(1)
	t.lock.Unlock()

	s.execute(s.ctx, t)
}

// execute runs the action of a task already moved to StateFiring, then removes it. A failed
// action is not retried.
func (s *Scheduler) execute(ctx context.Context, t *Task) error {
	defer s.inflight.Done()

	err := t.Action.Fire(ctx, s.env, t)
	if err != nil {
		log.Warn().Err(err).Str("guild", t.GuildID).Str("task", t.ID).Msg("scheduled task failed")
	} else {
		log.Info().Str("guild", t.GuildID).Str("task", t.ID).Msg("scheduled task fired")
	}

	s.finish(t)
	return err
}

// finish removes t from its registry and releases what it owns.
func (s *Scheduler) finish(t *Task) {
	g := s.guild(t.GuildID)
	g.mu.Lock()
	if i := slices.Index(g.tasks, t); i >= 0 {
		g.tasks = slices.Delete(g.tasks, i, i+1)
	}
	t.state = StateRemoved
	g.mu.Unlock()

	s.release(t.Action.OwnedFiles())
	close(t.done)
}

// Cancel disarms t and drops it. It returns false if t was not armed, for instance because
// it is already firing or gone.
func (s *Scheduler) Cancel(t *Task) bool {
	if t == nil || t.lock == nil {
		return false
	}
	t.lock.Lock()
	if t.state != StateArmed {
		t.lock.Unlock()
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.state = StateCancelled
	t.lock.Unlock()

	log.Info().Str("guild", t.GuildID).Str("task", t.ID).Msg("task cancelled")
	s.finish(t)
	return true
}

// SendNow fires an armed task immediately, on the calling goroutine, and returns the action's
// error. The task is consumed either way.
func (s *Scheduler) SendNow(ctx context.Context, t *Task) error {
	if t == nil || t.lock == nil {
		return ErrNotPending
	}
	t.lock.Lock()
	if t.state != StateArmed {
		t.lock.Unlock()
		return ErrNotPending
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.state = StateFiring
	s.inflight.Add(1)
	t.lock.Unlock()

	return s.execute(ctx, t)
}

// List returns a guild's tasks in insertion order.
func (s *Scheduler) List(guildID string) []*Task {
	g := s.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.tasks)
}

// Armed returns a guild's tasks still waiting for their deadline, in insertion order. Its
// numbering is the one FindNth uses.
func (s *Scheduler) Armed(guildID string) []*Task {
	g := s.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*Task
	for _, t := range g.tasks {
		if t.state == StateArmed {
			out = append(out, t)
		}
	}
	return out
}

// FindNth returns the n-th armed task (1-based, insertion order) matching f.
func (s *Scheduler) FindNth(guildID string, f Filter, n int) (*Task, error) {
	if n < 1 {
		return nil, ErrInvalidOrdinal
	}
	g := s.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	count := 0
	for _, t := range g.tasks {
		if t.state != StateArmed || !f.match(t) {
			continue
		}
		count++
		if count == n {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

// Count returns the number of live tasks across all guilds.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	guilds := make([]*guildTasks, 0, len(s.guilds))
	for _, g := range s.guilds {
		guilds = append(guilds, g)
	}
	s.mu.Unlock()

	total := 0
	for _, g := range guilds {
		g.mu.Lock()
		total += len(g.tasks)
		g.mu.Unlock()
	}
	return total
}

// Load registers persisted tasks and arms them. Deadlines already in the past fire right away.
// Records that cannot be rebuilt are logged and skipped. It returns the number of tasks armed.
func (s *Scheduler) Load(coll snapshot.Collection[model.TaskRecord]) int {
	loaded := 0
	for guildID, records := range coll {
		for _, rec := range records {
			t, err := TaskFromRecord(guildID, rec)
			if err != nil {
				log.Warn().Err(err).Str("guild", guildID).Msg("skipping persisted task")
				continue
			}
			if err := s.add(t); err != nil {
				log.Warn().Err(err).Str("guild", guildID).Msg("could not restore task")
				continue
			}
			loaded++
		}
	}
	log.Info().Int("tasks", loaded).Msg("scheduled tasks restored")
	return loaded
}

// Snapshot returns the persisted form of every task still waiting for its deadline.
func (s *Scheduler) Snapshot() snapshot.Collection[model.TaskRecord] {
	s.mu.Lock()
	guilds := make(map[string]*guildTasks, len(s.guilds))
	for id, g := range s.guilds {
		guilds[id] = g
	}
	s.mu.Unlock()

	out := make(snapshot.Collection[model.TaskRecord], len(guilds))
	for id, g := range guilds {
		g.mu.Lock()
		records := make([]model.TaskRecord, 0, len(g.tasks))
		for _, t := range g.tasks {
			if t.state == StateArmed || t.state == StateSuspended {
				records = append(records, t.Record())
			}
		}
		g.mu.Unlock()
		out[id] = records
	}
	return out
}

// Files returns every attachment path owned by a live task.
func (s *Scheduler) Files() []string {
	var files []string
	for _, records := range s.Snapshot() {
		for _, r := range records {
			files = append(files, r.Files...)
		}
	}
	return files
}

// Shutdown stops accepting tasks, suspends every armed timer and waits for in-flight fires.
// Suspended tasks stay registered so Snapshot can persist them. If ctx expires first, in-flight
// actions are cancelled and ctx's error is returned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.mu.Lock()
	guilds := make([]*guildTasks, 0, len(s.guilds))
	for _, g := range s.guilds {
		guilds = append(guilds, g)
	}
	s.mu.Unlock()

	suspended := 0
	for _, g := range guilds {
		g.mu.Lock()
		for _, t := range g.tasks {
			if t.state != StateArmed {
				continue
			}
			if t.timer != nil {
				t.timer.Stop()
				t.timer = nil
			}
			t.state = StateSuspended
			suspended++
		}
		g.mu.Unlock()
	}
	log.Info().Int("tasks", suspended).Msg("scheduler suspended")

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
