package service

import (
	"context"
	"errors"

	"github.com/haierkeys/prompt-history/internal/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// branchResolver shared branch lookups for the history services
// branchResolver 历史服务共用的分支查找逻辑
type branchResolver struct {
	branchRepo    domain.BranchRepository
	defaultBranch string
}

// byName returns the named branch or BranchNotFoundError
// byName 返回指定分支，不存在时返回 BranchNotFoundError
func (r branchResolver) byName(ctx context.Context, documentID, name string) (*domain.Branch, error) {
	b, err := r.branchRepo.GetByName(ctx, documentID, name)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.BranchNotFoundError{DocumentID: documentID, Name: name}
		}
		return nil, pkgerrors.Wrapf(err, "get branch %s", name)
	}
	return b, nil
}

// active returns the flagged active branch; when none is flagged it falls back to the
// default branch, then the oldest branch. recovered reports whether the fallback was used.
// active 返回被标记为活动的分支；没有标记时依次回退到默认分支和最早的分支，recovered 表示是否发生回退
func (r branchResolver) active(ctx context.Context, documentID string) (b *domain.Branch, recovered bool, err error) {
	flagged, err := r.branchRepo.ListActive(ctx, documentID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, "list active branches")
	}
	if len(flagged) > 0 {
		return flagged[0], false, nil
	}

	fallback, err := r.successor(ctx, documentID, "")
	if err != nil {
		return nil, false, err
	}
	if fallback == nil {
		return nil, false, &domain.NotFoundError{Resource: domain.ResourceBranch, DocumentID: documentID}
	}
	return fallback, true, nil
}

// successor picks the branch that should become active: the default branch,
// else the oldest branch, never the excluded one. nil when nothing qualifies.
// successor 选出应成为活动分支的分支：优先默认分支，其次最早的分支，排除 exclude；没有候选时返回 nil
func (r branchResolver) successor(ctx context.Context, documentID, exclude string) (*domain.Branch, error) {
	if exclude != r.defaultBranch {
		b, err := r.branchRepo.GetByName(ctx, documentID, r.defaultBranch)
		if err == nil {
			return b, nil
		}
		if !isNotFound(err) {
			return nil, pkgerrors.Wrap(err, "get default branch")
		}
	}

	branches, err := r.branchRepo.List(ctx, documentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list branches")
	}
	for _, b := range branches {
		if b.Name != exclude {
			return b, nil
		}
	}
	return nil, nil
}
