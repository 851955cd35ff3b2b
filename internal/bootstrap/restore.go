package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"session-lifecycle-manager/internal/localstore"
	"session-lifecycle-manager/internal/session/service"
)

// RestoreRemembered adopts the credential pair saved with a remembered session, then runs the
// manager's startup check. A saved pair the identity provider rejects ends as RestoreInvalid.
func (a *App) RestoreRemembered(ctx context.Context) (service.RestoreOutcome, error) {
	if a.Identity != nil {
		st, err := localstore.LoadRemember(ctx, a.Local)
		if err != nil {
			return service.RestoreNone, fmt.Errorf("load remembered state: %w", err)
		}
		if st.Remembered && st.RefreshToken != "" {
			if _, err := a.Identity.Use(ctx, st.AccessToken, st.RefreshToken); err != nil {
				a.logger.Info().Err(err).Msg("remembered credential rejected")
			}
		}
	}
	return a.Manager.RestoreRememberedSession(ctx)
}

// AdoptCredential makes an externally issued pair current. If this host remembers a session
// for the same pair, that session goes through the startup staleness check and is resumed or
// ended; otherwise a new session is initialized with opts and RestoreNone is returned.
func (a *App) AdoptCredential(ctx context.Context, accessToken, refreshToken string, opts service.InitOptions) (service.RestoreOutcome, error) {
	if a.Identity == nil {
		return service.RestoreNone, errors.New("bootstrap: adopting a credential requires JWT keys")
	}
	if _, err := a.Identity.Use(ctx, accessToken, refreshToken); err != nil {
		return service.RestoreNone, fmt.Errorf("adopt credential: %w", err)
	}
	st, err := localstore.LoadRemember(ctx, a.Local)
	if err != nil {
		return service.RestoreNone, fmt.Errorf("load remembered state: %w", err)
	}
	if st.Remembered && (st.RefreshToken == "" || st.RefreshToken == refreshToken) {
		outcome, err := a.Manager.RestoreRememberedSession(ctx)
		if err != nil {
			return outcome, err
		}
		if outcome != service.RestoreNone {
			return outcome, outcome.Err()
		}
	}
	a.Manager.InitializeSession(ctx, opts)
	return service.RestoreNone, nil
}
