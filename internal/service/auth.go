package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

// AuthService turns a provider login into a local user and a session token.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService
//
// LOGGING CONTRACT:
// Every login attempt is logged with its provider, uid, email addresses and
// the keys the provider sent back, so operators can see why a login failed
// without reproducing it. A failure to save the user is logged here with
// full context and then returned to the caller as an
// apperror.ErrAuthentication; it is never swallowed.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// AuthResult bundles the user and the issued JWT so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub handles the OAuth callback: log the attempt, save
// the user, issue a token. First login inserts; later logins refresh the
// profile and keep the same internal id.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, login *auth.SocialLogin) (*AuthResult, error) {
	if err := s.PreSocialLogin(ctx, login); err != nil {
		return nil, err
	}

	user, err := s.SaveUser(ctx, login)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// PreSocialLogin records a login attempt before anything is written.
func (s *AuthService) PreSocialLogin(ctx context.Context, login *auth.SocialLogin) error {
	if login == nil {
		return apperror.AuthenticationFailed("pre login", errors.New("no social login supplied"), nil)
	}

	s.logger.InfoContext(ctx, "social login attempt",
		slog.String("provider", login.Provider),
		slog.String("uid", login.UID),
		slog.Any("emails", login.EmailAddresses),
		slog.String("username", usernameOrNA(login)),
		slog.Any("extraDataKeys", login.ExtraDataKeys()),
	)

	if login.Provider != auth.ProviderGitHub {
		return apperror.AuthenticationFailed("pre login",
			fmt.Errorf("unsupported provider %q", login.Provider), loginDetails(login))
	}
	return nil
}

// SaveUser upserts the local user for a provider login.
//
// On failure it returns an *apperror.AppError of kind ErrAuthentication
// whose Cause is the underlying error and whose Details hold the login
// context that was logged.
func (s *AuthService) SaveUser(ctx context.Context, login *auth.SocialLogin) (*model.User, error) {
	if login == nil {
		return nil, apperror.AuthenticationFailed("save user", errors.New("no social login supplied"), nil)
	}

	s.logger.InfoContext(ctx, "saving social login user",
		slog.Any("emails", login.EmailAddresses),
		slog.String("username", usernameOrNA(login)),
	)

	user, err := s.saveUser(ctx, login)
	if err != nil {
		details := loginDetails(login)
		s.logger.ErrorContext(ctx, "failed to save social login user",
			slog.String("error", err.Error()),
			slog.String("errorType", fmt.Sprintf("%T", err)),
			slog.Any("details", details),
		)
		return nil, apperror.AuthenticationFailed("save user", err, details)
	}

	s.logger.InfoContext(ctx, "social login user saved",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return user, nil
}

func (s *AuthService) saveUser(ctx context.Context, login *auth.SocialLogin) (*model.User, error) {
	githubID, err := login.GitHubID()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		GitHubID:  githubID,
		Email:     login.PrimaryEmail(),
		AvatarURL: login.AvatarURL,
	}
	if login.Username != nil {
		user.Login = *login.Username
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", githubID, err)
	}
	return user, nil
}

func usernameOrNA(login *auth.SocialLogin) string {
	if login.Username == nil {
		return "N/A"
	}
	return *login.Username
}

func loginDetails(login *auth.SocialLogin) map[string]string {
	return map[string]string{
		"provider":      login.Provider,
		"uid":           login.UID,
		"emails":        strings.Join(login.EmailAddresses, ","),
		"username":      usernameOrNA(login),
		"extraDataKeys": strings.Join(login.ExtraDataKeys(), ","),
	}
}

// GetUserByID backs /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByLogin resolves a GitHub username for the CLI.
func (s *AuthService) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	if login == "" {
		return nil, apperror.ValidationFailed("login", "login must not be empty")
	}
	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", login, err)
	}
	return user, nil
}
