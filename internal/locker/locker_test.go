package locker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializesSameKey(t *testing.T) {
	l := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("order-1")
			defer l.Unlock("order-1")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	l := New()

	l.Lock("order-1")
	done := make(chan struct{})
	go func() {
		l.Lock("order-2")
		l.Unlock("order-2")
		close(done)
	}()
	<-done
	l.Unlock("order-1")
}

func TestUnlockWithoutLockPanics(t *testing.T) {
	l := New()
	assert.Panics(t, func() { l.Unlock("never-locked") })
}
