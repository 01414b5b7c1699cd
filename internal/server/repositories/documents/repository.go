package documents

import (
	"github.com/dmitrijs2005/teamdesk/internal/docstore"
)

// Repository is the hub's persistent document collection.
type Repository interface {
	docstore.Store
}
