package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/vulcan-api/vulcan-api/internal/actors"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Gate resolves an inbound Authorization header into an enabled actor.
//
// Every failure past "no credential at all" is reported as the same
// shared.ErrInvalidCredentials, so a caller cannot distinguish a bad
// signature from an expired token, an unknown name or a disabled account.
// Store failures are not authentication failures and propagate as-is.
type Gate struct {
	repo   Repository
	issuer *TokenIssuer
}

// NewGate constructs a Gate.
func NewGate(repo Repository, issuer *TokenIssuer) *Gate {
	return &Gate{repo: repo, issuer: issuer}
}

// parseBasicAuth decodes a "Basic base64(identity:secret)" header value.
func parseBasicAuth(header string) (identity, secret string, err error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Basic") {
		return "", "", errors.New("auth: not a basic auth header")
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", err
	}
	identity, secret, _ = strings.Cut(string(decoded), ":")
	if identity == "" {
		return "", "", errors.New("auth: empty identity")
	}
	return identity, secret, nil
}

// Resolve authenticates the credential header. An empty header is the
// distinct "authentication required" outcome; everything else either
// resolves to an enabled actor or fails uniformly.
func (g *Gate) Resolve(ctx context.Context, header string) (*actors.Actor, error) {
	if header == "" {
		return nil, shared.ErrAuthenticationRequired
	}
	identity, secret, err := parseBasicAuth(header)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if secret == "" {
		return g.resolveToken(ctx, identity)
	}
	return g.resolvePassword(ctx, identity, secret)
}

// resolveToken handles both signed credential kinds: a payload naming an
// actor directly (short-lived) or referencing a stored eternal token.
func (g *Gate) resolveToken(ctx context.Context, raw string) (*actors.Actor, error) {
	claims, err := g.issuer.Parse(raw)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	switch {
	case claims.User != "":
		actor, err := g.repo.FindActorByName(ctx, claims.User)
		if err != nil {
			return nil, maskNotFound(err)
		}
		return enabledOnly(actor)
	case claims.Token != "":
		stored, err := g.repo.FindEternalToken(ctx, claims.Token)
		if err != nil {
			return nil, maskNotFound(err)
		}
		actor, err := g.repo.FindActorByID(ctx, stored.UserID)
		if err != nil {
			return nil, maskNotFound(err)
		}
		return enabledOnly(actor)
	}
	return nil, shared.ErrInvalidCredentials
}

func (g *Gate) resolvePassword(ctx context.Context, name, password string) (*actors.Actor, error) {
	actor, err := g.repo.FindActorByName(ctx, name)
	if err != nil {
		return nil, maskNotFound(err)
	}
	if !actor.Enabled {
		return nil, shared.ErrInvalidCredentials
	}
	if !actors.ComparePassword(password, actor.Password) {
		return nil, shared.ErrInvalidCredentials
	}
	return actor, nil
}

func enabledOnly(actor *actors.Actor) (*actors.Actor, error) {
	if !actor.Enabled {
		return nil, shared.ErrInvalidCredentials
	}
	return actor, nil
}

// maskNotFound keeps "no such row" indistinguishable from any other
// credential failure while letting genuine store failures surface.
func maskNotFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ErrInvalidCredentials
	}
	return err
}
