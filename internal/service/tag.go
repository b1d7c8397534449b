package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

// TagService is the tag registry plus the "apply tags to an analysis" step
// of the pipeline.
type TagService struct {
	tags     repository.TagRepository
	analyses repository.AnalysisRepository
	logger   *slog.Logger
}

func NewTagService(tags repository.TagRepository, analyses repository.AnalysisRepository, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, analyses: analyses, logger: logger}
}

func normalizeTagName(name string) string {
	return strings.TrimSpace(name)
}

func validateTag(name string, category model.TagCategory) error {
	if name == "" {
		return apperror.ValidationFailed("name", "tag name is required")
	}
	if len(name) > MaxTagNameLength {
		return apperror.ValidationFailed("name", fmt.Sprintf("tag name must be %d characters or less", MaxTagNameLength))
	}
	if !category.Valid() {
		return apperror.ValidationFailed("category", fmt.Sprintf("unknown tag category %q", category))
	}
	return nil
}

// Create registers a new tag. An existing name is ErrDuplicate whatever
// its category.
func (s *TagService) Create(ctx context.Context, name string, category model.TagCategory) (*model.Tag, error) {
	name = normalizeTagName(name)
	if err := validateTag(name, category); err != nil {
		return nil, err
	}

	tag := &model.Tag{Name: name, Category: category}
	if err := s.tags.CreateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("service/tag: creating %q: %w", name, err)
	}
	return tag, nil
}

// List returns tags by usage, most used first, ties alphabetical.
func (s *TagService) List(ctx context.Context, opts repository.ListOptions) ([]model.Tag, error) {
	tags, err := s.tags.ListTags(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing: %w", err)
	}
	return tags, nil
}

// TagRef names a tag to apply; Category is only used if the tag has to be created.
type TagRef struct {
	Name     string            `json:"name"`
	Category model.TagCategory `json:"category"`
}

// Apply attaches tags to an analysis, creating unknown ones on the way.
// Each newly attached tag has its usage count bumped once. It returns how
// many tags were newly attached.
func (s *TagService) Apply(ctx context.Context, analysisID string, refs []TagRef) (int, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		tag, err := s.ensure(ctx, ref)
		if err != nil {
			return 0, err
		}
		ids = append(ids, tag.ID)
	}

	added, err := s.analyses.AddTags(ctx, analysisID, ids)
	if err != nil {
		return 0, fmt.Errorf("service/tag: applying tags to %s: %w", analysisID, err)
	}
	return added, nil
}

// ensure finds or creates a tag. Losing a creation race to another writer
// is fine: the loser reads the winner's row.
func (s *TagService) ensure(ctx context.Context, ref TagRef) (*model.Tag, error) {
	name := normalizeTagName(ref.Name)
	tag, err := s.tags.GetTagByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/tag: looking up %q: %w", name, err)
	}

	created, err := s.Create(ctx, name, ref.Category)
	if errors.Is(err, apperror.ErrDuplicate) {
		return s.tags.GetTagByName(ctx, name)
	}
	return created, err
}
