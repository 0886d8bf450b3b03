package ports

import (
	"context"

	"github.com/bnema/operate-cli/internal/domain"
)

type RunRepository interface {
	GetByID(ctx context.Context, id domain.RunID) (domain.RunRecord, error)
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
	Save(ctx context.Context, record domain.RunRecord) error
}
