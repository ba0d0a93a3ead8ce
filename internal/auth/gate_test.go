package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcan-api/vulcan-api/internal/actors"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockAuthRepo struct {
	actorsByID   map[int64]*actors.Actor
	actorsByName map[string]*actors.Actor
	tokens       map[string]*EternalToken
	nextTokenID  int64

	findActorError error
	findTokenError error
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		actorsByID:   make(map[int64]*actors.Actor),
		actorsByName: make(map[string]*actors.Actor),
		tokens:       make(map[string]*EternalToken),
	}
}

func (m *mockAuthRepo) addActor(a *actors.Actor) {
	m.actorsByID[a.ID] = a
	m.actorsByName[a.Name] = a
}

func (m *mockAuthRepo) FindActorByName(ctx context.Context, name string) (*actors.Actor, error) {
	if m.findActorError != nil {
		return nil, m.findActorError
	}
	a, ok := m.actorsByName[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (m *mockAuthRepo) FindActorByID(ctx context.Context, id int64) (*actors.Actor, error) {
	if m.findActorError != nil {
		return nil, m.findActorError
	}
	a, ok := m.actorsByID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (m *mockAuthRepo) FindEternalToken(ctx context.Context, token string) (*EternalToken, error) {
	if m.findTokenError != nil {
		return nil, m.findTokenError
	}
	t, ok := m.tokens[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (m *mockAuthRepo) GetEternalToken(ctx context.Context, id int64) (*EternalToken, error) {
	for _, t := range m.tokens {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockAuthRepo) ListEternalTokens(ctx context.Context, userID int64) ([]EternalToken, error) {
	var out []EternalToken
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockAuthRepo) CreateEternalToken(ctx context.Context, token *EternalToken) (int64, error) {
	m.nextTokenID++
	token.ID = m.nextTokenID
	m.tokens[token.Token] = token
	return token.ID, nil
}

func (m *mockAuthRepo) DeleteEternalToken(ctx context.Context, id int64) error {
	for value, t := range m.tokens {
		if t.ID == id {
			delete(m.tokens, value)
			return nil
		}
	}
	return shared.ErrNotFound
}

func basicHeader(identity, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(identity+":"+secret))
}

func testActor(t *testing.T, repo *mockAuthRepo, name, password string, enabled bool) *actors.Actor {
	t.Helper()
	hash, err := actors.HashPassword(password)
	require.NoError(t, err)
	a := &actors.Actor{
		ID:       int64(len(repo.actorsByID) + 1),
		Name:     name,
		Password: hash,
		Rank:     1,
		Enabled:  enabled,
	}
	repo.addActor(a)
	return a
}

// ============================================================================
// RESOLUTION
// ============================================================================

func TestResolveMissingHeader(t *testing.T) {
	gate := NewGate(newMockAuthRepo(), NewTokenIssuer("secret", time.Hour))

	_, err := gate.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrAuthenticationRequired)
}

func TestResolvePassword(t *testing.T) {
	repo := newMockAuthRepo()
	mary := testActor(t, repo, "mary", "hunter2", true)
	gate := NewGate(repo, NewTokenIssuer("secret", time.Hour))

	actor, err := gate.Resolve(context.Background(), basicHeader("mary", "hunter2"))
	require.NoError(t, err)
	assert.Equal(t, mary.ID, actor.ID)

	_, err = gate.Resolve(context.Background(), basicHeader("mary", "wrong"))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = gate.Resolve(context.Background(), basicHeader("nobody", "hunter2"))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials,
		"unknown name must look exactly like a wrong password")
}

func TestResolveMalformedHeader(t *testing.T) {
	repo := newMockAuthRepo()
	testActor(t, repo, "mary", "hunter2", true)
	gate := NewGate(repo, NewTokenIssuer("secret", time.Hour))

	for _, header := range []string{"Bearer abc", "Basic not-base64!", "Basic"} {
		_, err := gate.Resolve(context.Background(), header)
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "header %q", header)
	}
}

func TestResolveUserToken(t *testing.T) {
	repo := newMockAuthRepo()
	mary := testActor(t, repo, "mary", "hunter2", true)
	issuer := NewTokenIssuer("secret", time.Hour)
	gate := NewGate(repo, issuer)

	token, err := issuer.IssueUserToken("mary")
	require.NoError(t, err)

	actor, err := gate.Resolve(context.Background(), basicHeader(token, ""))
	require.NoError(t, err)
	assert.Equal(t, mary.ID, actor.ID)
}

func TestResolveExpiredUserToken(t *testing.T) {
	repo := newMockAuthRepo()
	testActor(t, repo, "mary", "hunter2", true)
	issuer := NewTokenIssuer("secret", time.Hour)
	gate := NewGate(repo, issuer)

	token, err := issuer.IssueUserToken("mary")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = gate.Resolve(context.Background(), basicHeader(token, ""))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveTokenSignedWithOtherSecret(t *testing.T) {
	repo := newMockAuthRepo()
	testActor(t, repo, "mary", "hunter2", true)
	gate := NewGate(repo, NewTokenIssuer("secret", time.Hour))

	other := NewTokenIssuer("not-the-secret", time.Hour)
	token, err := other.IssueUserToken("mary")
	require.NoError(t, err)

	_, err = gate.Resolve(context.Background(), basicHeader(token, ""))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveEternalToken(t *testing.T) {
	repo := newMockAuthRepo()
	mary := testActor(t, repo, "mary", "hunter2", true)
	issuer := NewTokenIssuer("secret", time.Hour)
	gate := NewGate(repo, issuer)

	_, err := repo.CreateEternalToken(context.Background(), &EternalToken{
		Name: "ci", UserID: mary.ID, Token: "deadbeef",
	})
	require.NoError(t, err)

	wrapper, err := issuer.IssueEternalToken("deadbeef")
	require.NoError(t, err)

	// Survives well past the user-token ttl.
	issuer.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
	actor, err := gate.Resolve(context.Background(), basicHeader(wrapper, ""))
	require.NoError(t, err)
	assert.Equal(t, mary.ID, actor.ID)
}

func TestResolveRevokedEternalToken(t *testing.T) {
	repo := newMockAuthRepo()
	mary := testActor(t, repo, "mary", "hunter2", true)
	issuer := NewTokenIssuer("secret", time.Hour)
	gate := NewGate(repo, issuer)

	id, err := repo.CreateEternalToken(context.Background(), &EternalToken{
		Name: "ci", UserID: mary.ID, Token: "deadbeef",
	})
	require.NoError(t, err)
	wrapper, err := issuer.IssueEternalToken("deadbeef")
	require.NoError(t, err)
	require.NoError(t, repo.DeleteEternalToken(context.Background(), id))

	_, err = gate.Resolve(context.Background(), basicHeader(wrapper, ""))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveDisabledActorFailsEveryPath(t *testing.T) {
	repo := newMockAuthRepo()
	mallory := testActor(t, repo, "mallory", "hunter2", false)
	issuer := NewTokenIssuer("secret", time.Hour)
	gate := NewGate(repo, issuer)

	_, err := gate.Resolve(context.Background(), basicHeader("mallory", "hunter2"))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "password path")

	userToken, err := issuer.IssueUserToken("mallory")
	require.NoError(t, err)
	_, err = gate.Resolve(context.Background(), basicHeader(userToken, ""))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "user token path")

	_, err = repo.CreateEternalToken(context.Background(), &EternalToken{
		Name: "ci", UserID: mallory.ID, Token: "deadbeef",
	})
	require.NoError(t, err)
	wrapper, err := issuer.IssueEternalToken("deadbeef")
	require.NoError(t, err)
	_, err = gate.Resolve(context.Background(), basicHeader(wrapper, ""))
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "eternal token path")
}

func TestResolveStoreFailurePropagates(t *testing.T) {
	repo := newMockAuthRepo()
	storeErr := errors.New("connection reset")
	repo.findActorError = storeErr
	gate := NewGate(repo, NewTokenIssuer("secret", time.Hour))

	_, err := gate.Resolve(context.Background(), basicHeader("mary", "hunter2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}
