package pages

import (
	"context"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Login page selectors.
const (
	loginPath = "/login"

	selUsernameInput = "#username"
	selPasswordInput = "#password"
	selLoginButton   = "#login-button"
	selLoginError    = ".alert-danger"
	selAccountMenu   = "#account-menu"
	selLogoutLink    = "#logout-link"
)

// Login is the sign-in page.
type Login struct {
	*Base
}

// NewLogin builds the login page object.
func NewLogin(session *browser.Session, page playwright.Page, cfg *config.Config, logger *zap.Logger) *Login {
	return &Login{Base: NewBase("login", session, page, cfg, logger)}
}

// Open navigates to the sign-in form.
func (l *Login) Open(ctx context.Context) error {
	if err := l.Base.Open(ctx, loginPath); err != nil {
		return err
	}
	return l.WaitVisible(ctx, selLoginButton, 0)
}

// SignIn submits the credentials and verifies the outcome. A rendered error
// banner is surfaced as an authentication failure.
func (l *Login) SignIn(ctx context.Context, username, password string) error {
	if username == "" {
		return errs.NewValidationError("username", "must not be empty")
	}
	if err := l.Fill(ctx, selUsernameInput, username); err != nil {
		return err
	}
	if err := l.Fill(ctx, selPasswordInput, password); err != nil {
		return err
	}
	if err := l.Click(ctx, selLoginButton); err != nil {
		return err
	}

	if l.IsVisible(selLoginError) {
		message, err := l.Text(ctx, selLoginError)
		if err != nil || message == "" {
			message = "login rejected"
		}
		l.CaptureFailure("sign_in")
		return errs.NewAuthenticationError(message, nil).
			WithContext("username", username)
	}

	l.logger.Info("signed in", zap.String("username", username))
	return nil
}

// SignedIn reports whether a user session is active.
func (l *Login) SignedIn() bool {
	return l.IsVisible(selAccountMenu)
}

// SignOut ends the active user session.
func (l *Login) SignOut(ctx context.Context) error {
	if !l.SignedIn() {
		return nil
	}
	if err := l.Click(ctx, selAccountMenu); err != nil {
		return err
	}
	return l.Click(ctx, selLogoutLink)
}
