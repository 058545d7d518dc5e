package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestEventValidate(t *testing.T) {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, Event{CalendarID: "room@example.com", Start: start, End: start.Add(time.Hour)}.Validate())
	assert.Error(t, Event{Start: start, End: start.Add(time.Hour)}.Validate())
	assert.Error(t, Event{CalendarID: "room@example.com", Start: start, End: start}.Validate())
}

func TestNoopClient(t *testing.T) {
	c := NewNoop()
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	id, err := c.CreateEvent(context.Background(), Event{CalendarID: "room", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, c.DeleteEvent(context.Background(), "room", "evt"))
}

func TestRun_StopsAtDeadline(t *testing.T) {
	c := &googleClient{attempts: 10}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := c.run(ctx, func() error { return errors.New("unavailable") })

	require.Error(t, err)
	assert.Less(t, time.Since(started), time.Second)
}

func TestRun_ReturnsFirstSuccess(t *testing.T) {
	c := &googleClient{attempts: 3}
	calls := 0

	err := c.run(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsGone(t *testing.T) {
	assert.True(t, isGone(&googleapi.Error{Code: 404}))
	assert.True(t, isGone(&googleapi.Error{Code: 410}))
	assert.False(t, isGone(&googleapi.Error{Code: 500}))
	assert.False(t, isGone(nil))
}
