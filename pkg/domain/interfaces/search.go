package interfaces

import (
	"context"

	"github.com/m-mizutani/prospector/pkg/domain/model"
)

// SearchClient defines the web search / profile discovery provider
type SearchClient interface {
	// SearchPerson runs a profile discovery query built from name, company,
	// location and username hints
	SearchPerson(ctx context.Context, q model.PersonQuery) ([]model.SearchHit, error)
}
