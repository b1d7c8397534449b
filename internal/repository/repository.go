// Package repository declares the storage contracts the services depend on.
//
// Every method takes a context so callers can cancel long queries. Errors
// use the kinds from internal/apperror: ErrNotFound for missing rows and
// ErrDuplicate for uniqueness violations. Anything else is a storage failure
// passed through unmodified.
package repository

import (
	"context"

	"github.com/sakif/starminder/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
}

type ReminderRepository interface {
	// CreateReminder inserts the reminder and its stars in one transaction.
	CreateReminder(ctx context.Context, reminder *model.Reminder, stars []*model.Star) error
	GetReminder(ctx context.Context, id string) (*model.Reminder, error)
	ListReminders(ctx context.Context, userID string, opts ListOptions) ([]model.Reminder, error)
	ListStars(ctx context.Context, reminderID string) ([]model.Star, error)
	GetStar(ctx context.Context, id string) (*model.Star, error)
	// ListStarsNeedingAnalysis returns stars with no analysis row, or whose
	// analysis has not been attempted yet.
	ListStarsNeedingAnalysis(ctx context.Context, limit int) ([]model.Star, error)
	// ListSearchableStars returns every star with its owner and README, for
	// rebuilding the search index.
	ListSearchableStars(ctx context.Context) ([]model.SearchableStar, error)
}

type TempStarRepository interface {
	CreateTempStar(ctx context.Context, ts *model.TempStar) error
	ListTempStars(ctx context.Context, userID string, opts ListOptions) ([]model.TempStar, error)
	UpdatePriority(ctx context.Context, id string, score float64) error
	// PromoteTempStars moves the user's top `limit` staged stars into a new reminder.
	PromoteTempStars(ctx context.Context, userID string, limit int) (*model.Reminder, []model.Star, error)
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	ListTags(ctx context.Context, opts ListOptions) ([]model.Tag, error)
}

type AnalysisRepository interface {
	// CreateAnalysis fails with ErrDuplicate if the star already has one.
	CreateAnalysis(ctx context.Context, a *model.StarAnalysis) error
	// SaveAnalysis inserts or updates the star's single analysis row.
	SaveAnalysis(ctx context.Context, a *model.StarAnalysis) error
	// SaveFetch and SaveAnalysisResult upsert like SaveAnalysis but update
	// only the columns their pipeline stage owns.
	SaveFetch(ctx context.Context, a *model.StarAnalysis) error
	SaveAnalysisResult(ctx context.Context, a *model.StarAnalysis) error
	GetAnalysisByStar(ctx context.Context, starID string) (*model.StarAnalysis, error)
	ListAnalysesByPriority(ctx context.Context, opts ListOptions) ([]model.StarAnalysis, error)
	// AddTags links tags to the analysis and bumps usage_count once per new link.
	AddTags(ctx context.Context, analysisID string, tagIDs []string) (int, error)
	ListAnalysisTags(ctx context.Context, analysisID string) ([]model.Tag, error)
}

type ClusterRepository interface {
	// CreateAssignment fails with ErrDuplicate if the star is already assigned.
	CreateAssignment(ctx context.Context, ca *model.ClusterAssignment) error
	// Assign replaces any existing assignment for the star atomically.
	Assign(ctx context.Context, ca *model.ClusterAssignment) error
	GetAssignment(ctx context.Context, starID string) (*model.ClusterAssignment, error)
	ClusterMembers(ctx context.Context, clusterID int) ([]model.ClusterAssignment, error)
}

type SiteRepository interface {
	GetCurrentSite(ctx context.Context) (*model.Site, error)
	SaveSite(ctx context.Context, site *model.Site) error
	// UpsertSocialApp returns created=true when the provider had no app before.
	UpsertSocialApp(ctx context.Context, app *model.SocialApp) (created bool, err error)
	LinkSocialAppSite(ctx context.Context, appID string, siteID int) error
	GetSocialApp(ctx context.Context, provider string) (*model.SocialApp, error)
}
