package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

// Classifier asks the primary classifier first and consults the fallback when
// the primary errors or returns a result that fails validation.
type Classifier struct {
	primary  ports.TaskClassifier
	fallback ports.TaskClassifier
}

var _ ports.TaskClassifier = (*Classifier)(nil)

var (
	errNilPrimaryClassifier  = errors.New("primary classifier is nil")
	errNilFallbackClassifier = errors.New("fallback classifier is nil")
)

func NewClassifier(primary ports.TaskClassifier, fallback ports.TaskClassifier) *Classifier {
	classifier, err := NewClassifierChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return classifier
}

func NewClassifierChecked(primary ports.TaskClassifier, fallback ports.TaskClassifier) (*Classifier, error) {
	if primary == nil {
		return nil, errNilPrimaryClassifier
	}
	if fallback == nil {
		return nil, errNilFallbackClassifier
	}

	return &Classifier{primary: primary, fallback: fallback}, nil
}

func (c *Classifier) ClassifyTask(ctx context.Context, objective string) (domain.ClassificationResult, error) {
	result, err := c.primary.ClassifyTask(ctx, objective)
	if err == nil {
		err = result.Validate()
		if err == nil {
			return result, nil
		}
		err = fmt.Errorf("invalid primary result: %w", err)
	}
	if shouldSkipFallback(err) {
		return domain.ClassificationResult{}, err
	}

	fallbackResult, fallbackErr := c.fallback.ClassifyTask(ctx, objective)
	if fallbackErr == nil {
		return fallbackResult, nil
	}

	return domain.ClassificationResult{}, fmt.Errorf("primary classifier failed: %w; fallback classifier failed: %w", err, fallbackErr)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
