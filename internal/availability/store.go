package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrTemplateNotFound = errors.New("availability template not found")

// Store holds the recurring weekly template for each provider. Set replaces
// the whole template so a partially applied patch can never leave an invalid
// intermediate state behind.
type Store interface {
	Get(ctx context.Context, providerID uuid.UUID) (*Template, error)
	Set(ctx context.Context, tpl *Template) error
}
