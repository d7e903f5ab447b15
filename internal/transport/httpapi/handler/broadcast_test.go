package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
	"github.com/alsaadxx12/fly1234/internal/platform/whatsapp"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/handler"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// fakeRunner records the last start and answers controls from a fixed table
type fakeRunner struct {
	started    *broadcast.Account
	recipients []string
	startErr   error
	jobs       map[uuid.UUID]*broadcast.Job
	controlErr error
}

func (f *fakeRunner) Start(_ context.Context, acct broadcast.Account, recipients []string, msg broadcast.Message) (*broadcast.Job, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = &acct
	f.recipients = recipients
	valid, invalid := broadcast.ParseRecipients(recipients)
	return &broadcast.Job{ID: uuid.New(), AccountID: acct.ID, Message: msg, Recipients: valid, Invalid: invalid, State: broadcast.StateRunning}, nil
}

func (f *fakeRunner) Get(_ context.Context, id uuid.UUID) (*broadcast.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, broadcast.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeRunner) control(id uuid.UUID, state broadcast.State) (*broadcast.Job, error) {
	if f.controlErr != nil {
		return nil, f.controlErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, broadcast.ErrJobNotFound
	}
	job.State = state
	return job, nil
}

func (f *fakeRunner) Pause(id uuid.UUID) (*broadcast.Job, error) {
	return f.control(id, broadcast.StatePaused)
}

func (f *fakeRunner) Resume(id uuid.UUID) (*broadcast.Job, error) {
	return f.control(id, broadcast.StateRunning)
}

func (f *fakeRunner) Stop(id uuid.UUID) (*broadcast.Job, error) {
	return f.control(id, broadcast.StateStopped)
}

// fakeResolver hands out one account for the nil id
type fakeResolver struct {
	def      *whatsapp.Account
	accounts map[uuid.UUID]*whatsapp.Account
}

func (f *fakeResolver) Resolve(_ context.Context, id uuid.UUID) (*whatsapp.Account, error) {
	if id == uuid.Nil {
		if f.def == nil {
			return nil, whatsapp.ErrNoActiveAccount
		}
		return f.def, nil
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, whatsapp.ErrAccountNotFound
	}
	if !a.IsActive {
		return nil, whatsapp.ErrAccountInactive
	}
	return a, nil
}

func broadcastRouter(runner *fakeRunner, resolver *fakeResolver) http.Handler {
	h := handler.NewBroadcastHandler(runner, resolver, logger.Discard())
	r := chi.NewRouter()
	r.Post("/broadcasts", h.StartBroadcast)
	r.Get("/broadcasts/{id}", h.GetBroadcast)
	r.Post("/broadcasts/{id}/pause", h.PauseBroadcast)
	r.Post("/broadcasts/{id}/resume", h.ResumeBroadcast)
	r.Post("/broadcasts/{id}/stop", h.StopBroadcast)
	return r
}

func TestStartBroadcast_UsesDefaultAccount(t *testing.T) {
	def := &whatsapp.Account{ID: uuid.New(), Name: "Main", InstanceID: "inst-main", Token: "tok", IsActive: true}
	runner := &fakeRunner{}
	r := broadcastRouter(runner, &fakeResolver{def: def})

	rec := serve(r, newRequest(t, http.MethodPost, "/broadcasts", map[string]any{
		"recipients": []string{"07701111111, 07702222222", "nope"},
		"message":    map[string]string{"kind": "chat", "body": "Eid offers"},
	}))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.NotNil(t, runner.started)
	assert.Equal(t, def.ID, runner.started.ID)
	assert.Equal(t, "inst-main", runner.started.InstanceID)

	job := decode[broadcast.Job](t, rec)
	assert.Equal(t, []string{"9647701111111", "9647702222222"}, job.Recipients)
	assert.Equal(t, []string{"nope"}, job.Invalid)
}

func TestStartBroadcast_Errors(t *testing.T) {
	inactive := &whatsapp.Account{ID: uuid.New(), IsActive: false}
	resolver := &fakeResolver{accounts: map[uuid.UUID]*whatsapp.Account{inactive.ID: inactive}}

	tests := []struct {
		name   string
		runner *fakeRunner
		body   map[string]any
		status int
	}{
		{
			name:   "no default account",
			runner: &fakeRunner{},
			body:   map[string]any{"recipients": []string{"07701111111"}},
			status: http.StatusConflict,
		},
		{
			name:   "inactive account",
			runner: &fakeRunner{},
			body:   map[string]any{"account_id": inactive.ID, "recipients": []string{"07701111111"}},
			status: http.StatusForbidden,
		},
		{
			name:   "unknown account",
			runner: &fakeRunner{},
			body:   map[string]any{"account_id": uuid.New()},
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(broadcastRouter(tt.runner, resolver), newRequest(t, http.MethodPost, "/broadcasts", tt.body))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("runner rejects", func(t *testing.T) {
		def := &whatsapp.Account{ID: uuid.New(), IsActive: true}
		for err, status := range map[error]int{
			broadcast.ErrNoRecipients: http.StatusBadRequest,
			broadcast.ErrAccountBusy:  http.StatusConflict,
			broadcast.ErrRunnerClosed: http.StatusServiceUnavailable,
		} {
			r := broadcastRouter(&fakeRunner{startErr: err}, &fakeResolver{def: def})
			rec := serve(r, newRequest(t, http.MethodPost, "/broadcasts", map[string]any{"recipients": []string{"x"}}))
			assert.Equal(t, status, rec.Code, err.Error())
		}
	})
}

func TestBroadcastControls(t *testing.T) {
	id := uuid.New()
	runner := &fakeRunner{jobs: map[uuid.UUID]*broadcast.Job{id: {ID: id, State: broadcast.StateRunning}}}
	r := broadcastRouter(runner, &fakeResolver{})

	rec := serve(r, newRequest(t, http.MethodPost, "/broadcasts/"+id.String()+"/pause", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, broadcast.StatePaused, decode[broadcast.Job](t, rec).State)

	rec = serve(r, newRequest(t, http.MethodPost, "/broadcasts/"+id.String()+"/resume", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, broadcast.StateRunning, decode[broadcast.Job](t, rec).State)

	rec = serve(r, newRequest(t, http.MethodGet, "/broadcasts/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, newRequest(t, http.MethodPost, "/broadcasts/"+uuid.NewString()+"/stop", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	runner.controlErr = broadcast.ErrJobFinished
	rec = serve(r, newRequest(t, http.MethodPost, "/broadcasts/"+id.String()+"/stop", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
