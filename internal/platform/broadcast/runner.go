package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// DefaultDelay is the pause before each send
const DefaultDelay = 3 * time.Second

// DefaultRetention is how many finished jobs stay in memory. Older ones are
// served from the store.
const DefaultRetention = 200

var errStopped = errors.New("stopped")

// Runner executes broadcast jobs, one per account at a time. Sends within a
// job are strictly sequential: recipient K+1 is never contacted before the
// attempt for recipient K has resolved.
type Runner struct {
	sender Sender
	store  Store
	feed   changefeed.Publisher
	delay  time.Duration
	logger *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	jobs      map[uuid.UUID]*run
	byAccount map[uuid.UUID]uuid.UUID
	finished  []uuid.UUID
	retain    int
	closed    bool
}

// run is the in-process control state of one job. Fields above persistMu
// are guarded by Runner.mu.
type run struct {
	job *Job
	// resume is non-nil while paused and closed on resume
	resume chan struct{}
	stop   chan struct{}
	done   chan struct{}
	// seq numbers snapshots in the order they were taken
	seq uint64

	// persistMu orders writes to the store; saved is the last seq written
	persistMu sync.Mutex
	saved     uint64
}

// snapshot copies the job and numbers the copy. Caller holds Runner.mu.
func (rn *run) snapshot() (*Job, uint64) {
	rn.seq++
	return rn.job.clone(), rn.seq
}

// NewRunner creates a runner. store may be nil.
func NewRunner(sender Sender, store Store, delay time.Duration, log *logger.Logger) *Runner {
	if delay < 0 {
		delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sender:    sender,
		store:     store,
		feed:      changefeed.Nop{},
		delay:     delay,
		logger:    log.WithField("component", "broadcast"),
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[uuid.UUID]*run),
		byAccount: make(map[uuid.UUID]uuid.UUID),
		retain:    DefaultRetention,
	}
}

// SetRetention sets how many finished jobs are kept in memory
func (r *Runner) SetRetention(n int) {
	if n < 0 {
		n = 0
	}
	r.mu.Lock()
	r.retain = n
	r.mu.Unlock()
}

// SetPublisher makes the runner announce job changes. Call before Start.
func (r *Runner) SetPublisher(p changefeed.Publisher) {
	if p != nil {
		r.feed = p
	}
}

// Start validates a broadcast and runs it in the background
func (r *Runner) Start(ctx context.Context, acct Account, recipients []string, msg Message) (*Job, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	valid, invalid := ParseRecipients(recipients)
	if len(valid) == 0 {
		return nil, ErrNoRecipients
	}

	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.New(),
		AccountID:  acct.ID,
		Message:    msg,
		Recipients: valid,
		Invalid:    invalid,
		State:      StateRunning,
		Status:     fmt.Sprintf("Queued %d recipients", len(valid)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}
	if id, busy := r.byAccount[acct.ID]; busy {
		if current := r.jobs[id]; current != nil && !current.job.State.Finished() {
			r.mu.Unlock()
			return nil, ErrAccountBusy
		}
	}
	rn := &run{job: job, stop: make(chan struct{}), done: make(chan struct{})}
	r.jobs[job.ID] = rn
	r.byAccount[acct.ID] = job.ID
	snapshot, seq := rn.snapshot()
	r.wg.Add(1)
	r.mu.Unlock()

	r.persist(ctx, rn, snapshot, seq, changefeed.OpCreate)
	r.logger.Info("broadcast started", "job_id", job.ID, "account_id", acct.ID, "recipients", len(valid), "invalid", len(invalid))

	go r.execute(acct, rn)
	return snapshot, nil
}

// Get returns a snapshot of a job, falling back to the store for jobs that
// ran in an earlier process.
func (r *Runner) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	r.mu.Lock()
	rn, ok := r.jobs[id]
	var snapshot *Job
	if ok {
		snapshot = rn.job.clone()
	}
	r.mu.Unlock()
	if ok {
		return snapshot, nil
	}

	if r.store == nil {
		return nil, ErrJobNotFound
	}
	return r.store.GetJob(ctx, id)
}

// Pause holds the job before its next recipient. A send in flight completes.
func (r *Runner) Pause(id uuid.UUID) (*Job, error) {
	return r.control(id, func(rn *run) {
		if rn.resume == nil {
			rn.resume = make(chan struct{})
			rn.job.State = StatePaused
			rn.job.Status = fmt.Sprintf("Paused after %d of %d", rn.job.Sent+rn.job.Failed, rn.job.Total())
		}
	})
}

// Resume releases a paused job
func (r *Runner) Resume(id uuid.UUID) (*Job, error) {
	return r.control(id, func(rn *run) {
		if rn.resume != nil {
			close(rn.resume)
			rn.resume = nil
			rn.job.State = StateRunning
			rn.job.Status = "Resumed"
		}
	})
}

// Stop ends the job before its next recipient. A send in flight completes
// and is counted.
func (r *Runner) Stop(id uuid.UUID) (*Job, error) {
	return r.control(id, func(rn *run) {
		select {
		case <-rn.stop:
		default:
			close(rn.stop)
			rn.job.Status = "Stopping"
		}
	})
}

func (r *Runner) control(id uuid.UUID, apply func(rn *run)) (*Job, error) {
	r.mu.Lock()
	rn, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrJobNotFound
	}
	if rn.job.State.Finished() {
		r.mu.Unlock()
		return nil, ErrJobFinished
	}
	apply(rn)
	rn.job.UpdatedAt = time.Now().UTC()
	snapshot, seq := rn.snapshot()
	r.mu.Unlock()

	r.persist(r.ctx, rn, snapshot, seq, changefeed.OpUpdate)
	return snapshot, nil
}

// Wait blocks until the job finishes or ctx ends. Jobs no longer in memory
// have already finished.
func (r *Runner) Wait(ctx context.Context, id uuid.UUID) (*Job, error) {
	r.mu.Lock()
	rn, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return r.Get(ctx, id)
	}
	select {
	case <-rn.done:
		return r.Get(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops every job between recipients and waits for the loops to
// exit.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) execute(acct Account, rn *run) {
	defer r.wg.Done()
	defer close(rn.done)

	log := r.logger.WithField("job_id", rn.job.ID)
	total := len(rn.job.Recipients)

	final := StateCompleted
	for i, to := range rn.job.Recipients {
		if err := r.waitTurn(rn, i, total); err != nil {
			final = StateStopped
			break
		}

		r.update(rn, func(j *Job) {
			j.Status = fmt.Sprintf("Sending to %s (%d/%d)", to, i+1, total)
		})

		// the request is not tied to the runner's lifetime so it always resolves
		err := r.sender.Send(context.WithoutCancel(r.ctx), acct, to, rn.job.Message)

		r.update(rn, func(j *Job) {
			if err != nil {
				j.Failed++
				if len(j.Failures) < maxFailures {
					j.Failures = append(j.Failures, Failure{To: to, Error: err.Error()})
				}
			} else {
				j.Sent++
			}
		})
		if err != nil {
			log.Warn("broadcast send failed", "to", to, "error", err)
		}
	}

	job := r.finish(rn, final)
	r.retire(rn.job.ID)
	log.Info("broadcast finished", "state", final, "sent", job.Sent, "failed", job.Failed, "total", total)
}

// waitTurn blocks while paused, then sleeps the send delay. It returns
// errStopped when the job is stopped or the runner shuts down first.
func (r *Runner) waitTurn(rn *run, i, total int) error {
	if err := r.gate(rn); err != nil {
		return err
	}

	if r.delay > 0 {
		r.update(rn, func(j *Job) {
			j.Status = fmt.Sprintf("Waiting before recipient %d/%d", i+1, total)
		})
		timer := time.NewTimer(r.delay)
		select {
		case <-timer.C:
		case <-rn.stop:
			timer.Stop()
			return errStopped
		case <-r.ctx.Done():
			timer.Stop()
			return errStopped
		}
	}

	// a pause requested during the delay holds before the send
	return r.gate(rn)
}

func (r *Runner) gate(rn *run) error {
	for {
		r.mu.Lock()
		resume := rn.resume
		r.mu.Unlock()

		select {
		case <-rn.stop:
			return errStopped
		case <-r.ctx.Done():
			return errStopped
		default:
		}
		if resume == nil {
			return nil
		}

		select {
		case <-resume:
		case <-rn.stop:
			return errStopped
		case <-r.ctx.Done():
			return errStopped
		}
	}
}

func (r *Runner) update(rn *run, apply func(j *Job)) *Job {
	r.mu.Lock()
	apply(rn.job)
	rn.job.UpdatedAt = time.Now().UTC()
	snapshot, seq := rn.snapshot()
	r.mu.Unlock()

	r.persist(r.ctx, rn, snapshot, seq, changefeed.OpUpdate)
	return snapshot
}

// retire queues a finished job for eviction and drops the oldest ones beyond
// the retention limit
func (r *Runner) retire(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = append(r.finished, id)
	for len(r.finished) > r.retain {
		old := r.finished[0]
		r.finished = r.finished[1:]
		if rn, ok := r.jobs[old]; ok {
			if r.byAccount[rn.job.AccountID] == old {
				delete(r.byAccount, rn.job.AccountID)
			}
			delete(r.jobs, old)
		}
	}
}

func (r *Runner) finish(rn *run, state State) *Job {
	return r.update(rn, func(j *Job) {
		now := time.Now().UTC()
		j.State = state
		j.FinishedAt = &now
		if rn.resume != nil {
			close(rn.resume)
			rn.resume = nil
		}
		if state == StateStopped {
			j.Status = fmt.Sprintf("Stopped: %d sent, %d failed, %d not sent", j.Sent, j.Failed, j.Pending())
		} else {
			j.Status = fmt.Sprintf("Completed: %d sent, %d failed", j.Sent, j.Failed)
		}
	})
}

// persist writes a snapshot and announces it; failures never interrupt a
// broadcast. A snapshot older than one already written is dropped, so the
// store never moves back to an earlier state.
func (r *Runner) persist(ctx context.Context, rn *run, job *Job, seq uint64, op changefeed.Op) {
	rn.persistMu.Lock()
	defer rn.persistMu.Unlock()
	if seq <= rn.saved {
		return
	}
	rn.saved = seq

	ctx = context.WithoutCancel(ctx)
	if r.store != nil {
		if err := r.store.SaveJob(ctx, job); err != nil {
			r.logger.Warn("failed to persist broadcast job", "job_id", job.ID, "error", err)
		}
	}
	_ = r.feed.Publish(ctx, changefeed.New(changefeed.Broadcasts, job.ID.String(), op))
}
