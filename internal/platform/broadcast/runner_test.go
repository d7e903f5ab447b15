package broadcast_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// =============================================================================
// Fakes
// =============================================================================

// fakeSender records sends. When gate is set, each send blocks until a value
// is received from it.
type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
	gate    chan struct{}
	started chan string
}

func (s *fakeSender) Send(ctx context.Context, _ broadcast.Account, to string, _ broadcast.Message) error {
	if s.started != nil {
		s.started <- to
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	if s.failFor[to] {
		return errors.New("invalid number")
	}
	return nil
}

func (s *fakeSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type memoryStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*broadcast.Job
	n    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[uuid.UUID]*broadcast.Job)}
}

func (m *memoryStore) SaveJob(_ context.Context, job *broadcast.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.n++
	return nil
}

func (m *memoryStore) GetJob(_ context.Context, id uuid.UUID) (*broadcast.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, broadcast.ErrJobNotFound
	}
	return job, nil
}

var (
	account = broadcast.Account{ID: uuid.New(), InstanceID: "inst", Token: "tok"}
	hello   = broadcast.Message{Kind: broadcast.KindChat, Body: "hello"}
	numbers = []string{"07701111111", "07702222222", "07703333333"}
)

func waitDone(t *testing.T, r *broadcast.Runner, id uuid.UUID) *broadcast.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := r.Wait(ctx, id)
	require.NoError(t, err)
	return job
}

func waitState(t *testing.T, r *broadcast.Runner, id uuid.UUID, state broadcast.State) {
	t.Helper()
	assert.Eventually(t, func() bool {
		job, err := r.Get(context.Background(), id)
		return err == nil && job.State == state
	}, 5*time.Second, 5*time.Millisecond)
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestRunner_SendsSequentially(t *testing.T) {
	sender := &fakeSender{}
	store := newMemoryStore()
	r := broadcast.NewRunner(sender, store, 0, logger.Discard())

	job, err := r.Start(context.Background(), account, numbers, hello)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StateRunning, job.State)
	assert.Equal(t, 3, job.Total())

	done := waitDone(t, r, job.ID)

	assert.Equal(t, broadcast.StateCompleted, done.State)
	assert.Equal(t, 3, done.Sent)
	assert.Equal(t, 0, done.Failed)
	assert.NotNil(t, done.FinishedAt)
	assert.Equal(t, "Completed: 3 sent, 0 failed", done.Status)
	assert.Equal(t, []string{"9647701111111", "9647702222222", "9647703333333"}, sender.recipients())

	stored, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StateCompleted, stored.State)
}

func TestRunner_FailureIsIsolated(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"9647702222222": true}}
	r := broadcast.NewRunner(sender, nil, 0, logger.Discard())

	job, err := r.Start(context.Background(), account, numbers, hello)
	require.NoError(t, err)
	done := waitDone(t, r, job.ID)

	assert.Equal(t, 2, done.Sent)
	assert.Equal(t, 1, done.Failed)
	require.Len(t, done.Failures, 1)
	assert.Equal(t, "9647702222222", done.Failures[0].To)
	assert.Len(t, sender.recipients(), 3)
}

func TestRunner_PauseAndResume(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{}), started: make(chan string, 3)}
	r := broadcast.NewRunner(sender, nil, 0, logger.Discard())

	job, err := r.Start(context.Background(), account, numbers, hello)
	require.NoError(t, err)

	// first send is in flight
	<-sender.started
	paused, err := r.Pause(job.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatePaused, paused.State)

	// the in-flight send resolves and is counted
	sender.gate <- struct{}{}
	assert.Eventually(t, func() bool {
		j, _ := r.Get(context.Background(), job.ID)
		return j.Sent == 1
	}, 5*time.Second, 5*time.Millisecond)

	// nothing else is attempted while paused
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sender.recipients(), 1)
	assert.Empty(t, sender.started)

	resumed, err := r.Resume(job.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StateRunning, resumed.State)

	for i := 0; i < 2; i++ {
		<-sender.started
		sender.gate <- struct{}{}
	}
	done := waitDone(t, r, job.ID)
	assert.Equal(t, broadcast.StateCompleted, done.State)
	assert.Equal(t, 3, done.Sent)
}

func TestRunner_StopWhilePaused(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{}), started: make(chan string, 3)}
	r := broadcast.NewRunner(sender, nil, 0, logger.Discard())

	job, err := r.Start(context.Background(), account, numbers, hello)
	require.NoError(t, err)

	<-sender.started
	_, err = r.Pause(job.ID)
	require.NoError(t, err)
	sender.gate <- struct{}{}
	waitState(t, r, job.ID, broadcast.StatePaused)

	_, err = r.Stop(job.ID)
	require.NoError(t, err)
	done := waitDone(t, r, job.ID)

	assert.Equal(t, broadcast.StateStopped, done.State)
	assert.Equal(t, 1, done.Sent)
	assert.Equal(t, 2, done.Pending())
	assert.Contains(t, done.Status, "2 not sent")
}

func TestRunner_StopDuringDelay(t *testing.T) {
	sender := &fakeSender{}
	r := broadcast.NewRunner(sender, nil, time.Hour, logger.Discard())

	job, err := r.Start(context.Background(), account, numbers, hello)
	require.NoError(t, err)

	_, err = r.Stop(job.ID)
	require.NoError(t, err)
	done := waitDone(t, r, job.ID)

	assert.Equal(t, broadcast.StateStopped, done.State)
	assert.Empty(t, sender.recipients())
}

func TestRunner_ControlErrors(t *testing.T) {
	r := broadcast.NewRunner(&fakeSender{}, nil, 0, logger.Discard())

	_, err := r.Pause(uuid.New())
	assert.ErrorIs(t, err, broadcast.ErrJobNotFound)

	job, err := r.Start(context.Background(), account, numbers[:1], hello)
	require.NoError(t, err)
	waitDone(t, r, job.ID)

	_, err = r.Resume(job.ID)
	assert.ErrorIs(t, err, broadcast.ErrJobFinished)

	_, err = r.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, broadcast.ErrJobNotFound)
}

func TestRunner_OneJobPerAccount(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{}), started: make(chan string, 3)}
	r := broadcast.NewRunner(sender, nil, 0, logger.Discard())

	job, err := r.Start(context.Background(), account, numbers[:1], hello)
	require.NoError(t, err)
	<-sender.started

	_, err = r.Start(context.Background(), account, numbers, hello)
	assert.ErrorIs(t, err, broadcast.ErrAccountBusy)

	other := broadcast.Account{ID: uuid.New(), InstanceID: "other", Token: "t"}
	second, err := r.Start(context.Background(), other, numbers[:1], hello)
	require.NoError(t, err)

	<-sender.started
	sender.gate <- struct{}{}
	sender.gate <- struct{}{}
	waitDone(t, r, job.ID)
	waitDone(t, r, second.ID)

	_, err = r.Start(context.Background(), account, numbers[:1], hello)
	require.NoError(t, err)
	<-sender.started
	sender.gate <- struct{}{}
}

func TestRunner_Validation(t *testing.T) {
	r := broadcast.NewRunner(&fakeSender{}, nil, 0, logger.Discard())

	_, err := r.Start(context.Background(), account, []string{"abc", "12"}, hello)
	assert.ErrorIs(t, err, broadcast.ErrNoRecipients)

	_, err = r.Start(context.Background(), account, numbers, broadcast.Message{Kind: broadcast.KindChat})
	assert.ErrorIs(t, err, broadcast.ErrEmptyMessage)

	_, err = r.Start(context.Background(), account, numbers, broadcast.Message{Kind: broadcast.KindImage})
	assert.ErrorIs(t, err, broadcast.ErrMissingMedia)

	_, err = r.Start(context.Background(), account, numbers, broadcast.Message{Kind: "sticker", Body: "x"})
	assert.ErrorIs(t, err, broadcast.ErrUnsupportedKind)
}

func TestRunner_Shutdown(t *testing.T) {
	sender := &fakeSender{}
	r := broadcast.NewRunner(sender, nil, time.Hour, logger.Discard())

	job, err := r.Start(context.Background(), account, numbers, hello)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	done, err := r.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StateStopped, done.State)

	_, err = r.Start(context.Background(), account, numbers, hello)
	assert.ErrorIs(t, err, broadcast.ErrRunnerClosed)
}

type recordingFeed struct {
	mu     sync.Mutex
	events []changefeed.Event
}

func (f *recordingFeed) Publish(_ context.Context, e changefeed.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func TestRunner_PublishesJobChanges(t *testing.T) {
	feed := &recordingFeed{}
	r := broadcast.NewRunner(&fakeSender{}, nil, 0, logger.Discard())
	r.SetPublisher(feed)

	job, err := r.Start(context.Background(), account, numbers[:1], hello)
	require.NoError(t, err)
	waitDone(t, r, job.ID)

	feed.mu.Lock()
	defer feed.mu.Unlock()
	require.GreaterOrEqual(t, len(feed.events), 2)
	assert.Equal(t, changefeed.OpCreate, feed.events[0].Op)
	for _, e := range feed.events {
		assert.Equal(t, changefeed.Broadcasts, e.Collection)
		assert.Equal(t, job.ID.String(), e.ID)
	}
	assert.Equal(t, changefeed.OpUpdate, feed.events[len(feed.events)-1].Op)
}

// historyStore keeps every state written per job, in write order
type historyStore struct {
	*memoryStore
	mu     sync.Mutex
	states map[uuid.UUID][]broadcast.State
}

func newHistoryStore() *historyStore {
	return &historyStore{memoryStore: newMemoryStore(), states: make(map[uuid.UUID][]broadcast.State)}
}

func (h *historyStore) SaveJob(ctx context.Context, job *broadcast.Job) error {
	h.mu.Lock()
	h.states[job.ID] = append(h.states[job.ID], job.State)
	h.mu.Unlock()
	return h.memoryStore.SaveJob(ctx, job)
}

func TestRunner_StoreNeverRegresses(t *testing.T) {
	recipients := make([]string, 40)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("0770%07d", i)
	}
	store := newHistoryStore()
	r := broadcast.NewRunner(&fakeSender{}, store, 0, logger.Discard())

	job, err := r.Start(context.Background(), account, recipients, hello)
	require.NoError(t, err)

	// pause and resume as fast as possible while the loop runs and finishes
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if _, err := r.Pause(job.ID); err != nil {
				return
			}
			if _, err := r.Resume(job.ID); err != nil {
				return
			}
		}
	}()
	done := waitDone(t, r, job.ID)
	wg.Wait()

	stored, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StateCompleted, done.State)
	assert.Equal(t, broadcast.StateCompleted, stored.State)
	assert.Equal(t, 40, stored.Sent)

	store.mu.Lock()
	defer store.mu.Unlock()
	states := store.states[job.ID]
	assert.Equal(t, broadcast.StateCompleted, states[len(states)-1])
}

func TestRunner_RetainsFinishedJobs(t *testing.T) {
	store := newMemoryStore()
	r := broadcast.NewRunner(&fakeSender{}, store, 0, logger.Discard())
	r.SetRetention(1)

	first, err := r.Start(context.Background(), account, numbers[:1], hello)
	require.NoError(t, err)
	waitDone(t, r, first.ID)

	second, err := r.Start(context.Background(), account, numbers[:1], hello)
	require.NoError(t, err)
	waitDone(t, r, second.ID)

	// the first job left memory but is still served from the store
	_, err = r.Pause(first.ID)
	assert.ErrorIs(t, err, broadcast.ErrJobNotFound)
	got, err := r.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StateCompleted, got.State)

	waited, err := r.Wait(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, waited.ID)

	_, err = r.Pause(second.ID)
	assert.ErrorIs(t, err, broadcast.ErrJobFinished)
}
