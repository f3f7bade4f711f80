package services

import (
	"context"
	"sync"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

// Coordinator serializes operations that read one repository and then
// write another, so an account cannot disappear between the lookup and
// the catalog issue that depends on it.
type Coordinator struct {
	mu sync.Mutex
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Do runs fn while holding the coordinator lock.
func (c *Coordinator) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return models.NewCancelledError(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}
