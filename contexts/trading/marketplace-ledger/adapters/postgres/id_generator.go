package postgresadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IDGenerator issues uuid event identifiers for the postgres-backed runtime.
type IDGenerator struct{}

func (IDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (r *Repository) Now() time.Time {
	return time.Now().UTC()
}
