package ports

import (
	"context"

	"github.com/bnema/operate-cli/internal/domain"
)

type TaskClassifier interface {
	ClassifyTask(ctx context.Context, objective string) (domain.ClassificationResult, error)
}
