package ports

import "github.com/bnema/operate-cli/internal/domain"

type Reporter interface {
	Report(event domain.Event)
}

type NopReporter struct{}

func (NopReporter) Report(domain.Event) {}
