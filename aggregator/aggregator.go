// Package aggregator implements C2: a deterministic M1 -> M5/M15/H1/H4
// rollup aligned to wall-clock boundaries (H4 buckets align to
// 00:00/04:00/08:00/12:00/16:00/20:00 UTC). In replay, a boundary-closed
// higher-timeframe candle is appended to the candle store BEFORE the M1
// candle that began the new bucket is itself appended, so analytics never
// see a half-formed higher-timeframe candle (spec §4.2).
package aggregator

import (
	"time"

	"github.com/evdnx/ictengine/candlestore"
	"github.com/evdnx/ictengine/types"
)

// partial is the in-flight candle for one (symbol, timeframe) bucket.
type partial struct {
	bucketStart time.Time
	open        float64
	high        float64
	low         float64
	close       float64
	volume      float64
	started     bool
}

func (p *partial) add(c types.Candle) {
	if !p.started {
		p.started = true
		p.open = c.Open
		p.high = c.High
		p.low = c.Low
	} else {
		if c.High > p.high {
			p.high = c.High
		}
		if c.Low < p.low {
			p.low = c.Low
		}
	}
	p.close = c.Close
	p.volume += c.Volume
}

func (p partial) toCandle(symbol string, tf types.Timeframe) types.Candle {
	return types.Candle{
		Symbol:    symbol,
		Timeframe: tf,
		Timestamp: p.bucketStart,
		Open:      p.open,
		High:      p.high,
		Low:       p.low,
		Close:     p.close,
		Volume:    p.volume,
	}
}

type symbolKey struct {
	symbol    string
	timeframe types.Timeframe
}

// Aggregator rolls incoming M1 candles into the enabled higher timeframes.
type Aggregator struct {
	store      *candlestore.Store
	timeframes []types.Timeframe
	partials   map[symbolKey]*partial
}

// New creates an Aggregator that populates store for each of timeframes
// (typically M5, M15, H1, H4) as M1 candles arrive.
func New(store *candlestore.Store, timeframes []types.Timeframe) *Aggregator {
	return &Aggregator{
		store:      store,
		timeframes: timeframes,
		partials:   make(map[symbolKey]*partial),
	}
}

// BucketStart returns the bucket-start timestamp of tf that contains ts, in
// UTC, aligned per spec §4.2 (H4 buckets at 00/04/08/12/16/20).
func BucketStart(ts time.Time, tf types.Timeframe) time.Time {
	ts = ts.UTC()
	minutes := tf.Minutes()
	if minutes <= 0 {
		return ts
	}
	dayStart := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	elapsed := int(ts.Sub(dayStart).Minutes())
	bucket := (elapsed / minutes) * minutes
	return dayStart.Add(time.Duration(bucket) * time.Minute)
}

// Reset clears all in-flight partial candles. The scheduler calls this at
// run() entry alongside candlestore.Store.Clear (spec §4.10 "state
// isolation").
func (a *Aggregator) Reset() {
	a.partials = make(map[symbolKey]*partial)
}

// OnM1 ingests one M1 candle for symbol, closing and flushing any
// higher-timeframe bucket it completes BEFORE the caller appends the M1
// candle itself to the store (spec §4.2 ordering requirement). The caller
// remains responsible for appending the M1 candle to the M1 buffer.
func (a *Aggregator) OnM1(symbol string, m1 types.Candle) error {
	for _, tf := range a.timeframes {
		bucket := BucketStart(m1.Timestamp, tf)
		k := symbolKey{symbol, tf}
		p, ok := a.partials[k]
		if !ok {
			p = &partial{bucketStart: bucket}
			a.partials[k] = p
		}
		if p.started && !p.bucketStart.Equal(bucket) {
			closed := p.toCandle(symbol, tf)
			if err := a.store.Append(symbol, tf, closed); err != nil {
				return err
			}
			p = &partial{bucketStart: bucket}
			a.partials[k] = p
		}
		p.bucketStart = bucket
		p.add(m1)
	}
	return nil
}
