package services

import (
	"context"
	"strings"

	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/types"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	List(ctx context.Context, filter store.LabelFilter) ([]types.Tag, error)
	ListByIDs(ctx context.Context, userID int, ids []int) ([]types.Tag, error)
	Get(ctx context.Context, id int) (types.Tag, error)
	Create(ctx context.Context, tag types.Tag) (types.Tag, error)
	Update(ctx context.Context, tag types.Tag) (types.Tag, error)
	Delete(ctx context.Context, id int) error
}

// TagService encapsulates tag use-cases. Every operation is scoped to
// the requesting user; an ownership mismatch is indistinguishable from
// a missing row.
type TagService struct {
	repo TagRepository
}

func NewTagService(repo TagRepository) *TagService {
	return &TagService{repo: repo}
}

// List returns the user's tags in descending name order. With
// assignedOnly set, only tags attached to at least one recipe are
// returned, each once.
func (s *TagService) List(ctx context.Context, userID int, assignedOnly bool) ([]types.Tag, error) {
	return s.repo.List(ctx, store.LabelFilter{UserID: userID, AssignedOnly: assignedOnly})
}

func (s *TagService) Create(ctx context.Context, userID int, name string) (types.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Tag{}, invalidField("name", "this field may not be blank")
	}
	return s.repo.Create(ctx, types.Tag{UserID: userID, Name: name})
}

func (s *TagService) Update(ctx context.Context, userID, id int, name string) (types.Tag, error) {
	tag, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Tag{}, err
	}
	if tag.UserID != userID {
		return types.Tag{}, store.ErrNotFound
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return types.Tag{}, invalidField("name", "this field may not be blank")
	}
	tag.Name = name
	return s.repo.Update(ctx, tag)
}

func (s *TagService) Delete(ctx context.Context, userID, id int) error {
	tag, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if tag.UserID != userID {
		return store.ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}
