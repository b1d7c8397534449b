package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/config"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

// SetupService provisions the site record and the GitHub OAuth app.
type SetupService struct {
	sites  repository.SiteRepository
	logger *slog.Logger
}

func NewSetupService(sites repository.SiteRepository, logger *slog.Logger) *SetupService {
	return &SetupService{sites: sites, logger: logger}
}

// SetupResult reports what EnsureSocialApp changed.
type SetupResult struct {
	Site               model.Site
	App                model.SocialApp
	Created            bool // false when an existing app was updated
	UsingPlaceholders  bool
	PlaceholderSources []string
}

// EnsureSocialApp writes the site domain and name from cfg, creates or
// updates the GitHub social app with cfg's credentials, and links the two.
//
// IDEMPOTENT:
// Running it again with the same cfg leaves the same rows behind; only
// Created flips to false. When cfg carries placeholder credentials it
// logs a warning, since GitHub login cannot work with them.
func (s *SetupService) EnsureSocialApp(ctx context.Context, cfg *config.Config) (*SetupResult, error) {
	res := &SetupResult{
		UsingPlaceholders:  cfg.UsingPlaceholderCredentials(),
		PlaceholderSources: cfg.Fallbacks,
	}
	if res.UsingPlaceholders {
		s.logger.WarnContext(ctx, "GitHub OAuth credentials not found in environment; using placeholder values. GitHub login will NOT work, but the site will load.",
			slog.Any("missing", cfg.Fallbacks),
		)
	}

	site := &model.Site{Domain: cfg.SiteDomain, Name: cfg.SiteName}
	if err := s.sites.SaveSite(ctx, site); err != nil {
		return nil, fmt.Errorf("service/setup: saving site: %w", err)
	}
	s.logger.InfoContext(ctx, "site updated", slog.String("domain", site.Domain), slog.String("name", site.Name))

	app := &model.SocialApp{
		Provider: auth.ProviderGitHub,
		Name:     "GitHub",
		ClientID: cfg.GitHubClientID,
		Secret:   cfg.GitHubSecret,
	}
	created, err := s.sites.UpsertSocialApp(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("service/setup: saving GitHub social app: %w", err)
	}
	if err := s.sites.LinkSocialAppSite(ctx, app.ID, site.ID); err != nil {
		return nil, fmt.Errorf("service/setup: linking GitHub social app to site: %w", err)
	}

	if created {
		s.logger.InfoContext(ctx, "created GitHub social app", slog.String("appID", app.ID))
	} else {
		s.logger.InfoContext(ctx, "updated GitHub social app", slog.String("appID", app.ID))
	}

	stored, err := s.sites.GetSocialApp(ctx, auth.ProviderGitHub)
	if err != nil {
		return nil, fmt.Errorf("service/setup: reading back GitHub social app: %w", err)
	}

	res.Site = *site
	res.App = *stored
	res.Created = created
	return res, nil
}

// SocialApp returns the stored credentials for a provider. The server
// prefers these over the environment once setup has run.
func (s *SetupService) SocialApp(ctx context.Context, provider string) (*model.SocialApp, error) {
	app, err := s.sites.GetSocialApp(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("service/setup: getting %s social app: %w", provider, err)
	}
	return app, nil
}
