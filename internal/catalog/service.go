package catalog

import "context"

// Lookup is the read-only catalog interface the checkout core consumes.
type Lookup interface {
	GetService(ctx context.Context, id string) (*Service, error)
}

type lookup struct {
	repo Repository
}

func NewLookup(repo Repository) Lookup {
	return &lookup{repo: repo}
}

func (l *lookup) GetService(ctx context.Context, id string) (*Service, error) {
	return l.repo.GetByID(ctx, id)
}
