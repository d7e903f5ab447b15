package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/platform/user"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/handler"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/middleware"
)

// fakeUserService keeps users in memory with plain passwords
type fakeUserService struct {
	users     map[string]*user.User
	passwords map[string]string
	failWith  error
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{users: map[string]*user.User{}, passwords: map[string]string{}}
}

func (f *fakeUserService) Register(_ context.Context, email, name, password string) (*user.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	email = user.NormalizeEmail(email)
	if _, ok := f.users[email]; ok {
		return nil, user.ErrUserAlreadyExists
	}
	u := &user.User{ID: uuid.New(), Email: email, Name: name}
	f.users[email] = u
	f.passwords[email] = password
	return u, nil
}

func (f *fakeUserService) Login(_ context.Context, email, password string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	u, ok := f.users[email]
	if !ok || f.passwords[email] != password {
		return nil, user.ErrInvalidPassword
	}
	return u, nil
}

func (f *fakeUserService) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func TestRegisterAndLogin(t *testing.T) {
	users := newFakeUserService()
	jwtSvc := middleware.NewJWTService("test-secret")
	h := handler.NewAuthHandler(users, jwtSvc)

	rec := serve(http.HandlerFunc(h.Register), newRequest(t, http.MethodPost, "/auth/register", handler.RegisterRequest{
		Email: "Desk@Agency.iq", Name: "Front Desk", Password: "password123",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[handler.AuthResponse](t, rec)
	assert.Equal(t, "desk@agency.iq", registered.User.Email)
	assert.Equal(t, "Front Desk", registered.User.Name)

	claims, err := jwtSvc.ValidateToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID.String())

	rec = serve(http.HandlerFunc(h.Login), newRequest(t, http.MethodPost, "/auth/login", handler.LoginRequest{
		Email: "desk@agency.iq", Password: "password123",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[handler.AuthResponse](t, rec).Token)
}

func TestRegister_Errors(t *testing.T) {
	users := newFakeUserService()
	h := handler.NewAuthHandler(users, middleware.NewJWTService("test-secret"))
	register := http.HandlerFunc(h.Register)

	rec := serve(register, newRequest(t, http.MethodPost, "/auth/register", handler.RegisterRequest{Password: "password123"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := handler.RegisterRequest{Email: "a@agency.iq", Password: "password123"}
	require.Equal(t, http.StatusCreated, serve(register, newRequest(t, http.MethodPost, "/", body)).Code)
	rec = serve(register, newRequest(t, http.MethodPost, "/", body))
	assert.Equal(t, http.StatusConflict, rec.Code)

	users.failWith = user.ErrPasswordTooShort
	rec = serve(register, newRequest(t, http.MethodPost, "/", handler.RegisterRequest{Email: "b@agency.iq", Password: "short"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	users.failWith = errors.New("connection reset")
	rec = serve(register, newRequest(t, http.MethodPost, "/", handler.RegisterRequest{Email: "c@agency.iq", Password: "password123"}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestLogin_WrongPassword(t *testing.T) {
	users := newFakeUserService()
	h := handler.NewAuthHandler(users, middleware.NewJWTService("test-secret"))
	_, _ = users.Register(context.Background(), "desk@agency.iq", "", "password123")

	rec := serve(http.HandlerFunc(h.Login), newRequest(t, http.MethodPost, "/auth/login", handler.LoginRequest{
		Email: "desk@agency.iq", Password: "wrong-password",
	}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decode[errorBody](t, rec).Error)
}

func TestMe(t *testing.T) {
	users := newFakeUserService()
	h := handler.NewAuthHandler(users, middleware.NewJWTService("test-secret"))
	u, err := users.Register(context.Background(), "desk@agency.iq", "", "password123")
	require.NoError(t, err)

	req := newRequest(t, http.MethodGet, "/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, u.ID))
	rec := serve(http.HandlerFunc(h.Me), req)

	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[handler.UserInfo](t, rec)
	// without a name the email is shown
	assert.Equal(t, "desk@agency.iq", info.Name)

	// the default operator in newRequest is not registered here
	rec = serve(http.HandlerFunc(h.Me), newRequest(t, http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
