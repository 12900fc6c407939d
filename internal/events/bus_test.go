package events_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/events"
)

type captureNotifier struct {
	notices []events.Notice
}

func (c *captureNotifier) Notify(_ context.Context, n events.Notice) error {
	c.notices = append(c.notices, n)
	return nil
}

func TestEmitFansOut(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := &captureNotifier{}
	board := events.NewBoard(5)
	bus := (&events.Bus{Notifiers: []events.Notifier{first}, Now: func() time.Time { return at }}).With(board)

	n, err := bus.Emit(context.Background(), events.TopicSaleCompleted, events.LevelSuccess, "Sale completed", map[string]string{"invoice": "INV-1"})
	require.NoError(t, err)
	require.Equal(t, at, n.At)
	require.JSONEq(t, `{"invoice":"INV-1"}`, string(n.Payload))
	require.Len(t, first.notices, 1)
	require.Equal(t, []events.Notice{n}, board.List())
}

func TestWithDoesNotMutateParent(t *testing.T) {
	parent := &events.Bus{}
	child := parent.With(&captureNotifier{})
	require.Empty(t, parent.Notifiers)
	require.Len(t, child.Notifiers, 1)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	boom := errors.New("boom")
	capture := &captureNotifier{}
	bus := &events.Bus{Notifiers: []events.Notifier{
		events.NotifierFunc(func(context.Context, events.Notice) error { return boom }),
		capture,
	}}
	n, err := bus.Emit(context.Background(), events.TopicSaleFailed, events.LevelError, "Sale failed", nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "Sale failed", n.Message)
	require.Len(t, capture.notices, 1, "later notifiers still run")
}

func TestEmitRequiresTopic(t *testing.T) {
	_, err := (&events.Bus{}).Emit(context.Background(), "  ", events.LevelInfo, "x", nil)
	require.Error(t, err)
}

func TestBoardKeepsNewest(t *testing.T) {
	board := events.NewBoard(2)
	bus := (&events.Bus{}).With(board)
	for i := 0; i < 3; i++ {
		_, err := bus.Emit(context.Background(), events.TopicBillReset, events.LevelInfo, fmt.Sprint(i), nil)
		require.NoError(t, err)
	}
	list := board.List()
	require.Len(t, list, 2)
	require.Equal(t, "1", list[0].Message)
	require.Equal(t, "2", list[1].Message)

	require.True(t, board.Dismiss(list[0].ID))
	require.False(t, board.Dismiss(list[0].ID))
	board.Clear()
	require.Empty(t, board.List())
}
