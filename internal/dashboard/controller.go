// Package dashboard keeps the owner dashboard's last good aggregate and the
// loading/error state a client renders from it.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/store"
)

// LoadErrorMessage is shown when a refresh fails for a reason other than an abort.
const LoadErrorMessage = "Failed to load dashboard data"

// Source produces the owner dashboard aggregate.
type Source interface {
	GetDashboardData(ctx context.Context) (*model.OwnerDashboardData, error)
}

// State is a snapshot of the controller.
type State struct {
	Data      *model.OwnerDashboardData `json:"data"`
	Loading   bool                      `json:"loading"`
	Error     string                    `json:"error,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt,omitempty"`
}

// Controller refreshes the dashboard on demand. Concurrent refreshes share
// one aggregation.
type Controller struct {
	source Source
	now    func() time.Time
	group  singleflight.Group

	mu    sync.RWMutex
	state State
}

func NewController(source Source, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{source: source, now: now, state: State{Loading: true}}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Refresh reloads the aggregate and returns the resulting state. An aborted
// refresh leaves the state untouched apart from clearing Loading, and a
// failed one only sets Error when nothing was loaded before.
func (c *Controller) Refresh(ctx context.Context) State {
	c.mu.Lock()
	c.state.Loading = true
	c.mu.Unlock()

	_, _, _ = c.group.Do("dashboard", func() (any, error) {
		c.load(ctx)
		return nil, nil
	})
	return c.State()
}

func (c *Controller) load(ctx context.Context) {
	data, err := c.source.GetDashboardData(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	switch {
	case err != nil && store.IsAbort(err):
		log.Debug().Msg("Dashboard refresh aborted")
	case err != nil:
		log.Error().Err(err).Msg("Dashboard refresh failed")
		// keep showing the last good aggregate
		if c.state.Data == nil {
			c.state.Error = LoadErrorMessage
		}
	default:
		c.state.Data = data
		c.state.Error = ""
		c.state.UpdatedAt = c.now()
	}
}

// RefreshJob adapts Refresh to a scheduler job.
func (c *Controller) RefreshJob(ctx context.Context) error {
	c.Refresh(ctx)
	return nil
}
