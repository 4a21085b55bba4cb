package browser

import (
	"math/rand"
	"time"
)

type waitRange struct {
	min float64
	max float64
}

// pacing controls the sleeps between interactions. Turbo mode removes
// them and types whole strings; human mode randomizes them and types
// one key at a time.
type pacing struct {
	afterKey   waitRange
	afterField waitRange
	afterClick waitRange
	arrival    waitRange
	perKey     bool
	turbo      bool

	rng   *rand.Rand
	sleep func(time.Duration)
}

func newPacing(turbo bool, rng *rand.Rand) *pacing {
	p := &pacing{
		rng:   rng,
		sleep: time.Sleep,
	}
	p.setTurbo(turbo)

	return p
}

func (p *pacing) setTurbo(on bool) {
	if on {
		p.afterKey = waitRange{0, 0}
		p.afterField = waitRange{0, 0}
		p.afterClick = waitRange{0, 0}
		p.arrival = waitRange{1, 1}
		p.perKey = false
		p.turbo = true

		return
	}

	p.afterKey = waitRange{0.1, 0.5}
	p.afterField = waitRange{1, 2}
	p.afterClick = waitRange{0.25, 1.5}
	p.arrival = waitRange{4, 10}
	p.perKey = true
	p.turbo = false
}

// chill sleeps a random amount inside the range.
func (p *pacing) chill(r waitRange) {
	if r.max <= 0 {
		return
	}

	seconds := r.min + p.rng.Float64()*(r.max-r.min)
	p.sleep(time.Duration(seconds * float64(time.Second)))
}

// keyDelay is the per-keystroke delay handed to the driver when typing
// one key at a time.
func (p *pacing) keyDelay() time.Duration {
	if !p.perKey {
		return 0
	}

	seconds := p.afterKey.min + p.rng.Float64()*(p.afterKey.max-p.afterKey.min)

	return time.Duration(seconds * float64(time.Second))
}
