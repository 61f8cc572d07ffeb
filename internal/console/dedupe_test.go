package console

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"userconsole/internal/models"
)

func TestFlights(t *testing.T) {
	t.Run("concurrent callers share one run", func(t *testing.T) {
		f := NewFlights()
		var runs atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		results := make([]any, 4)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := f.Do(context.Background(), "k", func() (any, error) {
					runs.Add(1)
					<-release
					return "done", nil
				})
				assert.NoError(t, err)
				results[i] = v
			}()
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), runs.Load())
		for _, v := range results {
			assert.Equal(t, "done", v)
		}
	})

	t.Run("a cancelled caller stops waiting", func(t *testing.T) {
		f := NewFlights()
		release := make(chan struct{})
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.Do(ctx, "k", func() (any, error) {
			<-release
			return nil, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil flights run directly", func(t *testing.T) {
		var f *Flights
		v, err := f.Do(context.Background(), "k", func() (any, error) { return 7, nil })
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})
}

func TestSubmissionKey(t *testing.T) {
	a := submissionKey("ns1", "login", LoginForm{Username: "admin", Password: "admin123"})
	assert.Equal(t, a, submissionKey("ns1", "login", LoginForm{Username: "admin", Password: "admin123"}))
	assert.NotEqual(t, a, submissionKey("ns2", "login", LoginForm{Username: "admin", Password: "admin123"}))
	assert.NotEqual(t, a, submissionKey("ns1", "login", LoginForm{Username: "admin", Password: "other123"}))
	assert.NotContains(t, a, "admin123")
}

func (s *ConsoleSuite) TestDuplicateSubmissionsCollapse() {
	s.signIn(adminUser())
	release := make(chan struct{})
	toggled := janeUser()
	toggled.Status = models.StatusActive
	s.mockUsers.EXPECT().ToggleStatus(gomock.Any(), int64(3)).DoAndReturn(
		func(context.Context, int64) (*models.User, error) {
			<-release
			return &toggled, nil
		}).Times(1)

	var wg sync.WaitGroup
	got := make([]*models.User, 2)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := s.console.ToggleStatus(s.ctx, 3)
			s.NoError(err)
			got[i] = u
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(models.StatusActive, got[0].Status)
	s.Equal(got[0], got[1])
}
