// Package archive receives location-history entries evicted from a
// tracker's bounded window, so delivery audit data survives the in-store
// cap instead of being silently discarded.
package archive

import (
	"context"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

type Archiver interface {
	Archive(ctx context.Context, orderID string, updates []domain.LocationUpdate) error
}
