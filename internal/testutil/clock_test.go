package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_DefaultsToEpoch(t *testing.T) {
	c := NewFakeClock(time.Time{})
	assert.Equal(t, Epoch, c.Now())
}

func TestFakeClock_Advance(t *testing.T) {
	c := NewFakeClock(Epoch)

	got := c.Advance(59 * time.Second)

	assert.Equal(t, Epoch.Add(59*time.Second), got)
	assert.Equal(t, got, c.Now())
	assert.Equal(t, 59*time.Second, c.Elapsed(Epoch))
}

func TestFakeClock_Set(t *testing.T) {
	c := NewFakeClock(Epoch)
	later := Epoch.Add(time.Hour)

	c.Set(later)

	assert.Equal(t, later, c.Now())
}

func TestFakeClock_ConcurrentAdvance(t *testing.T) {
	c := NewFakeClock(Epoch)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(100*time.Second), c.Now())
}
