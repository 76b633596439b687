package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/user"
)

// Handshake admits a connection only for a valid token whose subject is an
// active user.
type Handshake struct {
	cfg   TokenConfig
	users user.Directory
	log   *zap.Logger
}

func NewHandshake(cfg TokenConfig, users user.Directory, log *zap.Logger) *Handshake {
	return &Handshake{cfg: cfg, users: users, log: log.With(zap.String("component", "auth.handshake"))}
}

// Authenticate returns an error wrapping ErrRejected for every failure that
// should refuse the connection.
func (h *Handshake) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil, fmt.Errorf("%w: %w", ErrRejected, ErrTokenMissing)
	}

	uid, claims, err := ParseAccess(h.cfg, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}

	u, err := h.users.GetActiveByID(ctx, uid)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d unknown or inactive", ErrRejected, uid)
		}
		// store trouble is not the client's fault but the connection still
		// cannot be admitted
		h.log.Warn("user lookup failed", zap.Int64("user_id", uid), zap.Error(err))
		return nil, fmt.Errorf("%w: user lookup: %w", ErrRejected, err)
	}

	name := u.Username
	if name == "" {
		name = claims.Username
	}
	return &Identity{UserID: u.ID, Username: name}, nil
}

// TokenFromRequest reads "Authorization: Bearer <t>" first, then the token
// query parameter that browser websocket clients use.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
