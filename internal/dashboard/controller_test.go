package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/store"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	calls int32
	delay time.Duration
	errs  []error
}

func (f *fakeSource) GetDashboardData(ctx context.Context) (*model.OwnerDashboardData, error) {
	n := atomic.AddInt32(&f.calls, 1)
	time.Sleep(f.delay)
	if int(n) <= len(f.errs) && f.errs[n-1] != nil {
		return nil, f.errs[n-1]
	}
	return &model.OwnerDashboardData{Alerts: []model.SystemAlert{{ID: "a"}}}, nil
}

func TestController_InitialStateIsLoading(t *testing.T) {
	c := NewController(&fakeSource{}, func() time.Time { return now })
	st := c.State()
	assert.True(t, st.Loading)
	assert.Nil(t, st.Data)
}

func TestController_RefreshLoadsData(t *testing.T) {
	c := NewController(&fakeSource{}, func() time.Time { return now })

	st := c.Refresh(context.Background())
	assert.False(t, st.Loading)
	require.NotNil(t, st.Data)
	assert.Equal(t, "a", st.Data.Alerts[0].ID)
	assert.Empty(t, st.Error)
	assert.Equal(t, now, st.UpdatedAt)
}

func TestController_FirstLoadFailureSetsError(t *testing.T) {
	src := &fakeSource{errs: []error{errors.New("boom")}}
	c := NewController(src, nil)

	st := c.Refresh(context.Background())
	assert.Equal(t, LoadErrorMessage, st.Error)
	assert.Nil(t, st.Data)
	assert.False(t, st.Loading)

	st = c.Refresh(context.Background())
	assert.Empty(t, st.Error)
	assert.NotNil(t, st.Data)
}

func TestController_LaterFailureKeepsData(t *testing.T) {
	src := &fakeSource{errs: []error{nil, errors.New("boom")}}
	c := NewController(src, func() time.Time { return now })

	first := c.Refresh(context.Background())
	second := c.Refresh(context.Background())
	assert.Empty(t, second.Error)
	assert.Same(t, first.Data, second.Data)
}

func TestController_AbortIsNoop(t *testing.T) {
	src := &fakeSource{errs: []error{store.ErrAborted, nil, context.Canceled}}
	c := NewController(src, func() time.Time { return now })

	st := c.Refresh(context.Background())
	assert.Empty(t, st.Error)
	assert.Nil(t, st.Data)
	assert.False(t, st.Loading)

	loaded := c.Refresh(context.Background())
	require.NotNil(t, loaded.Data)

	st = c.Refresh(context.Background())
	assert.Empty(t, st.Error)
	assert.Same(t, loaded.Data, st.Data)
}

func TestController_ConcurrentRefreshesShareOneLoad(t *testing.T) {
	src := &fakeSource{delay: 50 * time.Millisecond}
	c := NewController(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Refresh(context.Background())
		}()
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&src.calls), int32(5))
	assert.NotNil(t, c.State().Data)
}

func TestController_RefreshJob(t *testing.T) {
	c := NewController(&fakeSource{}, nil)
	require.NoError(t, c.RefreshJob(context.Background()))
	assert.NotNil(t, c.State().Data)
}
