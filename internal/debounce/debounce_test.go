package debounce_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/debounce"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) add(v string) {
	r.mu.Lock()
	r.got = append(r.got, v)
	r.mu.Unlock()
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestOnlyLastValueFires(t *testing.T) {
	rec := &recorder{}
	d := debounce.New(40*time.Millisecond, rec.add)

	for _, v := range []string{"s", "so", "soa", "soap"} {
		d.Trigger(v)
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, d.Pending())

	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, []string{"soap"}, rec.values())
	require.False(t, d.Pending())
}

func TestCancelDropsPending(t *testing.T) {
	rec := &recorder{}
	d := debounce.New(20*time.Millisecond, rec.add)

	d.Trigger("x")
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	require.Empty(t, rec.values())
	require.False(t, d.Pending())
}

func TestSeparateQuietPeriodsFireSeparately(t *testing.T) {
	rec := &recorder{}
	d := debounce.New(10*time.Millisecond, rec.add)

	d.Trigger("a")
	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 2*time.Millisecond)
	d.Trigger("b")
	require.Eventually(t, func() bool { return len(rec.values()) == 2 }, time.Second, 2*time.Millisecond)
	require.Equal(t, []string{"a", "b"}, rec.values())
}
