package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RememberState is the "remember me" record kept on the host between runs.
type RememberState struct {
	Remembered   bool
	SessionStart time.Time
	LastActivity time.Time
	// AccessToken and RefreshToken are the remembered credential pair; empty when none was saved.
	AccessToken  string
	RefreshToken string
}

type storedCredential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoadRemember reads the remember state. A missing or unparsable record yields the zero state.
func LoadRemember(ctx context.Context, s Store) (RememberState, error) {
	var st RememberState
	v, ok, err := s.Get(ctx, KeyRemember)
	if err != nil {
		return st, err
	}
	if !ok || v != "true" {
		return st, nil
	}
	st.Remembered = true
	st.SessionStart = loadTime(ctx, s, KeySessionStart)
	st.LastActivity = loadTime(ctx, s, KeyLastActivity)
	if v, ok, err := s.Get(ctx, KeyCredential); err == nil && ok {
		var c storedCredential
		if json.Unmarshal([]byte(v), &c) == nil {
			st.AccessToken, st.RefreshToken = c.AccessToken, c.RefreshToken
		}
	}
	return st, nil
}

// SaveRemember marks the host as remembered, recording session start and last activity.
func SaveRemember(ctx context.Context, s Store, sessionStart, lastActivity time.Time) error {
	return errors.Join(
		s.Set(ctx, KeyRemember, "true"),
		s.Set(ctx, KeySessionStart, sessionStart.UTC().Format(time.RFC3339Nano)),
		s.Set(ctx, KeyLastActivity, lastActivity.UTC().Format(time.RFC3339Nano)),
	)
}

// SaveCredential records the credential pair of the remembered session so it can be adopted
// again after a restart.
func SaveCredential(ctx context.Context, s Store, accessToken, refreshToken string) error {
	b, err := json.Marshal(storedCredential{AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return s.Set(ctx, KeyCredential, string(b))
}

// TouchActivity updates the recorded last activity.
func TouchActivity(ctx context.Context, s Store, at time.Time) error {
	return s.Set(ctx, KeyLastActivity, at.UTC().Format(time.RFC3339Nano))
}

// ClearRemember deletes every remember key. All deletes are attempted.
func ClearRemember(ctx context.Context, s Store) error {
	return errors.Join(
		s.Delete(ctx, KeyRemember),
		s.Delete(ctx, KeySessionStart),
		s.Delete(ctx, KeyLastActivity),
		s.Delete(ctx, KeyCredential),
	)
}

func loadTime(ctx context.Context, s Store, key string) time.Time {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
