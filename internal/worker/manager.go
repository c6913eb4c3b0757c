package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"sevensons/internal/models"
	"sevensons/internal/orchestrator"
)

const queueLen = 16

const defaultIdleTimeout = 5 * time.Minute

// ErrQueueFull is returned when a session already has queueLen rounds
// waiting; the caller should surface a busy error rather than block.
var ErrQueueFull = errors.New("session queue full")

// RoundRunner executes one orchestration round.
type RoundRunner interface {
	Round(ctx context.Context, req orchestrator.RoundRequest) []models.ReplyOutcome
}

type roundJob struct {
	ctx      context.Context
	req      orchestrator.RoundRequest
	resultCh chan []models.ReplyOutcome
}

type sessionWorker struct {
	jobCh  chan roundJob
	stopCh chan struct{}
}

// Manager serializes rounds per session: one goroutine per active session
// drains that session's queue in FIFO order, so two rounds for the same
// session never interleave their store writes. Rounds for different
// sessions run independently. Idle session workers retire after a timeout.
type Manager struct {
	runner RoundRunner
	idle   time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionWorker
}

func NewManager(runner RoundRunner, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &Manager{
		runner:   runner,
		idle:     idleTimeout,
		sessions: make(map[string]*sessionWorker),
	}
}

// Dispatch enqueues the round on its session's worker and waits for the
// result. Returns ErrQueueFull when the session queue is saturated.
func (m *Manager) Dispatch(ctx context.Context, req orchestrator.RoundRequest) ([]models.ReplyOutcome, error) {
	job := roundJob{
		ctx:      ctx,
		req:      req,
		resultCh: make(chan []models.ReplyOutcome, 1),
	}

	// Lookup and enqueue happen in one critical section so a retiring
	// worker can never strand a queued job.
	m.mu.Lock()
	w, ok := m.sessions[req.SessionID]
	if !ok {
		w = &sessionWorker{
			jobCh:  make(chan roundJob, queueLen),
			stopCh: make(chan struct{}),
		}
		m.sessions[req.SessionID] = w
		go m.runWorker(req.SessionID, w)
	}
	select {
	case w.jobCh <- job:
	default:
		m.mu.Unlock()
		return nil, ErrQueueFull
	}
	m.mu.Unlock()

	select {
	case outcomes := <-job.resultCh:
		return outcomes, nil
	case <-ctx.Done():
		// The worker will still run the job and drop the buffered result.
		return nil, ctx.Err()
	}
}

// Stop retires the session's worker immediately; queued jobs are abandoned.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	if w, ok := m.sessions[sessionID]; ok {
		delete(m.sessions, sessionID)
		close(w.stopCh)
	}
	m.mu.Unlock()
}

func (m *Manager) runWorker(sessionID string, w *sessionWorker) {
	timer := time.NewTimer(m.idle)
	defer timer.Stop()

	for {
		select {
		case job := <-w.jobCh:
			debugLog("[worker] round for session %s (%d roles)", sessionID, len(job.req.Roles))
			job.resultCh <- m.runner.Round(job.ctx, job.req)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.idle)
		case <-timer.C:
			m.mu.Lock()
			if len(w.jobCh) == 0 {
				delete(m.sessions, sessionID)
				m.mu.Unlock()
				debugLog("[worker] session %s worker retired", sessionID)
				return
			}
			m.mu.Unlock()
			timer.Reset(m.idle)
		case <-w.stopCh:
			debugLog("[worker] session %s worker stopped", sessionID)
			return
		}
	}
}
