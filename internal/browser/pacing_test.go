package browser

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacing_Turbo(t *testing.T) {
	p := newPacing(true, rand.New(rand.NewSource(1)))

	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }

	assert.True(t, p.turbo)
	assert.False(t, p.perKey)
	assert.Zero(t, p.keyDelay())

	p.chill(p.afterKey)
	p.chill(p.afterField)
	p.chill(p.afterClick)
	assert.Empty(t, slept)

	// Arrival wait stays even in turbo mode.
	p.chill(p.arrival)
	assert.Len(t, slept, 1)
	assert.Equal(t, time.Second, slept[0])
}

func TestPacing_Human(t *testing.T) {
	p := newPacing(false, rand.New(rand.NewSource(1)))

	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }

	assert.False(t, p.turbo)
	assert.True(t, p.perKey)

	for i := 0; i < 50; i++ {
		p.chill(p.afterClick)
	}

	for _, d := range slept {
		assert.GreaterOrEqual(t, d, 250*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}

	for i := 0; i < 50; i++ {
		d := p.keyDelay()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 500*time.Millisecond)
	}
}

func TestPacing_SwitchBack(t *testing.T) {
	p := newPacing(false, rand.New(rand.NewSource(1)))
	p.setTurbo(true)

	assert.True(t, p.turbo)
	assert.False(t, p.perKey)
	assert.Equal(t, waitRange{0, 0}, p.afterField)
}
