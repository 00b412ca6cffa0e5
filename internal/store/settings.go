package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
)

// GetSiteID returns this device's site id, generating and persisting one
// on first use. A concurrent first call cannot produce two ids.
func GetSiteID(ctx context.Context, s kv.Store) (string, error) {
	candidate := uuid.NewString()

	stored, err := s.PutIfAbsent(ctx, keySiteID, []byte(candidate))
	if err != nil {
		return "", fmt.Errorf("storing site id: %w", err)
	}
	if len(stored) == 0 {
		return "", fmt.Errorf("site id is empty")
	}
	return string(stored), nil
}

// GetCurrentUser returns the signed-in user, or nil if there is none.
func GetCurrentUser(ctx context.Context, r kv.Reader) (*model.User, error) {
	var u model.User
	ok, err := getJSON(ctx, r, keyCurrentUser, &u)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// SaveCurrentUser stores the signed-in user. A nil user clears it.
func SaveCurrentUser(ctx context.Context, w kv.Writer, u *model.User) error {
	if u == nil {
		return w.Delete(ctx, keyCurrentUser)
	}
	if err := putJSON(ctx, w, keyCurrentUser, u); err != nil {
		return fmt.Errorf("saving current user: %w", err)
	}
	return nil
}

// LoadSession builds the session for this process. When userID is set it
// becomes the current user; otherwise the stored current user is used.
func LoadSession(ctx context.Context, s kv.Store, userID string, now time.Time) (model.Session, error) {
	siteID, err := GetSiteID(ctx, s)
	if err != nil {
		return model.Session{}, err
	}

	u, err := GetCurrentUser(ctx, s)
	if err != nil {
		return model.Session{}, err
	}

	if userID != "" && (u == nil || u.ID != userID) {
		u = &model.User{ID: userID, Role: model.RoleWorker, CreatedAt: now.UnixMilli()}
		if err := SaveCurrentUser(ctx, s, u); err != nil {
			return model.Session{}, err
		}
	}

	sess := model.Session{SiteID: siteID}
	if u != nil {
		sess.UserID = u.ID
	}
	return sess, nil
}

// GetLastSync returns the epoch-ms time of the last successful
// reconciliation, or 0 if there has been none.
func GetLastSync(ctx context.Context, r kv.Reader) (int64, error) {
	data, err := r.Get(ctx, keyLastSync)
	if err != nil {
		return 0, fmt.Errorf("getting last sync: %w", err)
	}
	if data == nil {
		return 0, nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing last sync: %w", err)
	}
	return ms, nil
}

// SaveLastSync records a successful reconciliation time.
func SaveLastSync(ctx context.Context, w kv.Writer, ms int64) error {
	if err := w.Put(ctx, keyLastSync, []byte(strconv.FormatInt(ms, 10))); err != nil {
		return fmt.Errorf("saving last sync: %w", err)
	}
	return nil
}
