package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lfx/internal/lastfm"
	"github.com/desertthunder/lfx/internal/server"
	"github.com/desertthunder/lfx/internal/shared"
)

// authWaitTimeout bounds how long signup waits for the user to approve
// access in their browser.
const authWaitTimeout = 5 * time.Minute

// AuthSignup registers a local account and walks the Last.fm web
// authorization flow to bind a session key to it.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	if err := r.requireDB(); err != nil {
		return err
	}

	username := cmd.StringArg("username")
	if username == "" {
		return fmt.Errorf("%w: username is required", shared.ErrMissingArgument)
	}

	password, err := r.resolvePassword(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("requesting authorization token")
	token, err := r.client.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get request token: %v", shared.ErrAuthFailed, err)
	}

	session, err := r.authorize(ctx, token)
	if err != nil {
		return err
	}

	if _, err := r.users.Create(username, password, session.Key, cmd.Bool("admin")); err != nil {
		return err
	}

	r.logger.Info("account created", "user", username, "lastfm", session.Name)
	r.writePlainln("✓ Account '%s' authorized as Last.fm user '%s'", username, session.Name)
	r.writePlain("You can now run: lfx import --user %s\n", username)
	return nil
}

// authorize opens the browser on the authorization page and waits for the
// approved token, either via a localhost callback or by polling the API.
func (r *Runner) authorize(ctx context.Context, token string) (*lastfm.Session, error) {
	port := r.config.Credentials.LastFM.CallbackPort

	callback := ""
	if port > 0 {
		callback = fmt.Sprintf("http://localhost:%d/callback", port)
	}

	authURL := r.client.AuthURL(token, callback)
	r.writePlain("Approve access in your browser:\n  %s\n\n", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, authWaitTimeout)
	defer cancel()

	if port == 0 {
		r.logger.Info("waiting for approval")
		session, err := r.client.WaitForSession(waitCtx, token, 0)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no approval within %s", shared.ErrSessionPending, authWaitTimeout)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return session, nil
	}

	handler := server.NewCallbackHandler()
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Warn("callback server error", "error", err)
		}
	}()
	defer srv.Shutdown(context.Background())

	r.logger.Info("waiting for callback", "port", port)
	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
		}
		session, err := r.client.Session(waitCtx, result.Token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return session, nil
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: timed out waiting for authorization", shared.ErrAuthFailed)
	}
}

// AuthLogin verifies local account credentials and reports archive state.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	username := cmd.StringArg("username")
	if username == "" {
		return fmt.Errorf("%w: username is required", shared.ErrMissingArgument)
	}

	password, err := r.resolvePassword(cmd)
	if err != nil {
		return err
	}

	user, err := r.users.Authenticate(username, password)
	if err != nil {
		return err
	}

	cursor, err := r.library.Cursor(user.Name)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Welcome back, %s", user.Name)
	r.writePlain("Scrobbles archived: %d\n", cursor.Imported)
	if cursor.LastTimestamp > 0 {
		r.writePlain("Last import: %s\n", time.Unix(cursor.LastTimestamp, 0).Format(time.RFC1123))
	}
	return nil
}

// AuthStatus shows authorization and archive state for an account.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	username := cmd.StringArg("username")
	if username == "" {
		return fmt.Errorf("%w: username is required", shared.ErrMissingArgument)
	}

	key, err := r.users.SessionKey(username)
	if err != nil {
		return err
	}

	cursor, err := r.library.Cursor(username)
	if err != nil {
		return err
	}

	r.writePlain("Account: %s\n", username)
	if key != "" {
		r.writePlain("Authorization: ✓ session key present\n")
	} else {
		r.writePlain("Authorization: ✗ no session key, run 'lfx auth signup'\n")
	}
	r.writePlain("Scrobbles archived: %d\n", cursor.Imported)
	if cursor.LastTimestamp > 0 {
		r.writePlain("Resume point: %s\n", time.Unix(cursor.LastTimestamp, 0).Format(time.RFC1123))
	}
	return nil
}

// resolvePassword takes the password flag or prompts on stdin.
func (r *Runner) resolvePassword(cmd *cli.Command) (string, error) {
	if password := cmd.String("password"); password != "" {
		return password, nil
	}

	r.writePlain("Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(line)
	if password == "" {
		return "", fmt.Errorf("%w: password must not be empty", shared.ErrInvalidInput)
	}
	return password, nil
}
