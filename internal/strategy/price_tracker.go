package strategy

import (
	"math"
	"sync"
)

// PriceTracker maintains a sliding tick-window of recent mid prices for each
// product and exposes the statistical helpers strategies rely on. The window
// is measured in observations, not wall-clock time: the simulation runs on a
// discrete tick clock, so "recent" means "the last N ticks".
type PriceTracker struct {
	history    map[string][]float64
	shortEMA   map[string]float64
	longEMA    map[string]float64
	windowSize int
	alphaShort float64
	alphaLong  float64
	mu         sync.RWMutex
}

const (
	defaultWindowTicks = 30
	defaultShortWindow = 20
	defaultLongWindow  = 100
)

// NewPriceTracker creates a PriceTracker keeping windowSize observations per
// product. Non-positive windowSize falls back to the default.
func NewPriceTracker(windowSize int) *PriceTracker {
	if windowSize <= 0 {
		windowSize = defaultWindowTicks
	}
	return &PriceTracker{
		history:    make(map[string][]float64),
		shortEMA:   make(map[string]float64),
		longEMA:    make(map[string]float64),
		windowSize: windowSize,
		alphaShort: 2.0 / float64(defaultShortWindow+1),
		alphaLong:  2.0 / float64(defaultLongWindow+1),
	}
}

// Track records a new price observation for the given product, trimming the
// oldest point once the window is full and updating both EMAs.
func (pt *PriceTracker) Track(product string, price float64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pts := append(pt.history[product], price)
	if len(pts) > pt.windowSize {
		pts = pts[len(pts)-pt.windowSize:]
	}
	pt.history[product] = pts

	if _, ok := pt.shortEMA[product]; !ok {
		pt.shortEMA[product] = price
		pt.longEMA[product] = price
		return
	}
	pt.shortEMA[product] = pt.alphaShort*price + (1-pt.alphaShort)*pt.shortEMA[product]
	pt.longEMA[product] = pt.alphaLong*price + (1-pt.alphaLong)*pt.longEMA[product]
}

// Count returns the number of observations currently held for the product.
func (pt *PriceTracker) Count(product string) int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return len(pt.history[product])
}

// Full reports whether the product's window has filled up.
func (pt *PriceTracker) Full(product string) bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return len(pt.history[product]) >= pt.windowSize
}

// Average returns the arithmetic mean of all prices in the window, or 0 with
// no recorded points.
func (pt *PriceTracker) Average(product string) float64 {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	pts := pt.history[product]
	if len(pts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pts {
		sum += p
	}
	return sum / float64(len(pts))
}

// Volatility returns the population standard deviation of the prices in the
// window. With fewer than two points it returns 0.
func (pt *PriceTracker) Volatility(product string) float64 {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	pts := pt.history[product]
	if len(pts) < 2 {
		return 0
	}

	var sum float64
	for _, p := range pts {
		sum += p
	}
	mean := sum / float64(len(pts))

	var variance float64
	for _, p := range pts {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(pts))
	return math.Sqrt(variance)
}

// ZScore returns how many standard deviations price is away from the window
// mean. It returns 0 until the window is full or when volatility is
// effectively zero.
func (pt *PriceTracker) ZScore(product string, price float64) float64 {
	if !pt.Full(product) {
		return 0
	}
	vol := pt.Volatility(product)
	if vol < 1e-9 {
		return 0
	}
	return (price - pt.Average(product)) / vol
}

// Trend reports the EMA crossover direction for the product: +1 when the
// short EMA is above the long EMA, -1 when below, 0 when equal or unseen.
func (pt *PriceTracker) Trend(product string) int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	short, ok := pt.shortEMA[product]
	if !ok {
		return 0
	}
	long := pt.longEMA[product]
	switch {
	case short > long:
		return 1
	case short < long:
		return -1
	default:
		return 0
	}
}
