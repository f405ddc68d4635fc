package room

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/metrics"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

var ErrSequencerClosed = errors.New("sequencer is closed")

// Task is a unit of room work.
type Task func()

// SequencerConfig tunes lanes.
type SequencerConfig struct {
	// IdleTimeout is how long a lane lives without work.
	IdleTimeout time.Duration
	// QueueSize is the per-lane buffer.
	QueueSize int
}

// Sequencer runs tasks one at a time per room, in submission order. Each
// active room owns a goroutine that exits after IdleTimeout without work.
type Sequencer struct {
	cfg    SequencerConfig
	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
	logger zerolog.Logger
}

type lane struct {
	tasks   chan Task
	pending int // guarded by Sequencer.mu
}

// NewSequencer creates a sequencer.
func NewSequencer(cfg SequencerConfig) *Sequencer {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Sequencer{
		cfg:    cfg,
		lanes:  make(map[string]*lane),
		done:   make(chan struct{}),
		logger: pkglog.Component("sequencer"),
	}
}

// Submit queues task on roomID's lane, starting the lane if needed. It blocks
// only while that lane's buffer is full.
func (s *Sequencer) Submit(roomID string, task Task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSequencerClosed
	}
	l, ok := s.lanes[roomID]
	if !ok {
		l = &lane{tasks: make(chan Task, s.cfg.QueueSize)}
		s.lanes[roomID] = l
		s.wg.Add(1)
		metrics.RoomLanes.Inc()
		go s.run(roomID, l)
	}
	l.pending++
	s.mu.Unlock()

	l.tasks <- task
	return nil
}

// Lanes returns the number of running lanes.
func (s *Sequencer) Lanes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}

// Close rejects new work, runs everything already submitted and waits for
// all lanes to exit.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
}

func (s *Sequencer) run(roomID string, l *lane) {
	defer s.wg.Done()
	defer metrics.RoomLanes.Dec()

	idle := time.NewTimer(s.cfg.IdleTimeout)
	defer idle.Stop()

	done := s.done
	draining := false

	for {
		select {
		case task := <-l.tasks:
			s.execute(roomID, task)

			s.mu.Lock()
			l.pending--
			if draining && l.pending == 0 {
				delete(s.lanes, roomID)
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(s.cfg.IdleTimeout)

		case <-idle.C:
			if s.retire(roomID, l) {
				return
			}
			idle.Reset(s.cfg.IdleTimeout)

		case <-done:
			if s.retire(roomID, l) {
				return
			}
			done = nil
			draining = true
		}
	}
}

// retire removes the lane when nothing is pending for it.
func (s *Sequencer) retire(roomID string, l *lane) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.pending > 0 {
		return false
	}
	delete(s.lanes, roomID)
	return true
}

func (s *Sequencer) execute(roomID string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str(pkglog.FieldRecipeID, roomID).
				Interface("panic", r).
				Msg("room task panicked")
		}
	}()
	task()
}
