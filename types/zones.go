package types

import "time"

// OrderBlock is the last opposite-polarity candle preceding a BOS,
// interpreted as an institutional footprint zone.
type OrderBlock struct {
	Direction         Direction
	Low               float64
	High              float64
	OriginCandleIndex int
	Mitigated         bool
}

// FairValueGap is a three-candle imbalance.
type FairValueGap struct {
	Direction         Direction
	Low               float64
	High              float64
	MiddleCandleIndex int
	Resolved          bool
}

// Size returns the gap width.
func (f FairValueGap) Size() float64 { return f.High - f.Low }

// DisplacementEvent marks an unusually large-bodied candle.
type DisplacementEvent struct {
	CandleIndex int
	Direction   Direction
	ATRMultiple float64
}

// LiquiditySweep marks a wick that briefly violated a prior swing and
// reversed back inside it.
type LiquiditySweep struct {
	Direction         Direction
	SweptLevelPrice   float64
	CandleIndex       int
	ReversalConfirmed bool
}

// ZoneSource records which detectors contributed to a SetupZone.
type ZoneSource string

const (
	SourceFVG       ZoneSource = "fvg"
	SourceOB        ZoneSource = "ob"
	SourceFVGAndOB  ZoneSource = "fvg_and_ob"
)

// SetupZone is the price interval a setup must return to before an entry is
// considered.
type SetupZone struct {
	Direction Direction
	ZoneLow   float64
	ZoneHigh  float64
	Source    ZoneSource
	CreatedAt time.Time
}

// Valid reports the zone ordering invariant.
func (z SetupZone) Valid() bool { return z.ZoneLow < z.ZoneHigh }

// Contains reports whether price (optionally expanded by bufferFrac of the
// zone size on each side) lies inside the zone.
func (z SetupZone) Contains(price, bufferFrac float64) bool {
	size := z.ZoneHigh - z.ZoneLow
	buf := size * bufferFrac
	return price >= z.ZoneLow-buf && price <= z.ZoneHigh+buf
}
