package web

import (
	"context"
	"time"

	"github.com/benjlis/covid19-search/internal/facets"
	"github.com/benjlis/covid19-search/internal/query"
	db "github.com/benjlis/covid19-search/internal/storage"
)

// Store is the corpus read surface the handlers depend on.
type Store interface {
	SearchEmails(ctx context.Context, clause query.Clause, limit int) (*db.SearchResult, error)
	GetEmail(ctx context.Context, id int64) (*db.Email, error)
	EmailVolume(ctx context.Context, from, to time.Time) ([]db.VolumePoint, error)
}

// FacetSource provides the cached facet catalog for the search form.
type FacetSource interface {
	Get(ctx context.Context) (*facets.Catalog, error)
}

// PDFFetcher downloads preview PDFs from the archive.
type PDFFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
