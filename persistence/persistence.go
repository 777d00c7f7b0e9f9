// Package persistence implements the two declared external collaborators
// of spec §6 that are not out of scope entirely: the decision-log sink and
// the historical-candle source. Only the contracts plus a minimal
// best-effort implementation are provided — no relational store. The
// JSONL sink's non-blocking bounded queue is grounded on
// yoghaf-market-indikator's async CSV logger (engine goroutine -> buffered
// channel -> writer goroutine, drop-on-full); the NDJSON-per-line encoding
// is grounded on abdulloh5007-tradepl's CandleStore.
package persistence

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/evdnx/ictengine/logger"
	"github.com/evdnx/ictengine/types"
)

// DecisionRecord is one append-only entry of the decision log (spec §6:
// "Append-only records of {ts, symbol, strategy, decision, reasons,
// proposal?, guardrailMode, riskCheck, executionResult?}").
type DecisionRecord struct {
	Timestamp       time.Time         `json:"ts"`
	Symbol          string            `json:"symbol"`
	Strategy        string            `json:"strategy"`
	Decision        types.DecisionKind `json:"decision"`
	Reasons         []string          `json:"reasons,omitempty"`
	Proposal        *types.TradeProposal `json:"proposal,omitempty"`
	GuardrailMode   string            `json:"guardrail_mode"`
	RiskOK          bool              `json:"risk_ok"`
	ExecutionResult string            `json:"execution_result,omitempty"`
}

// DecisionSink is the append-only decision-log contract. Implementations
// must tolerate being unavailable without stalling the tick loop (spec §5
// "Resource limits").
type DecisionSink interface {
	Record(r DecisionRecord)
	Close() error
}

// HistoricalSource is the pull interface of spec §6: candles returned in
// strictly ascending timestamp order for one symbol/timeframe/range.
type HistoricalSource interface {
	LoadCandles(ctx context.Context, symbol string, from, to time.Time, tf types.Timeframe) ([]types.Candle, error)
}

const sinkQueueSize = 4096

// JSONLSink is a best-effort, non-blocking DecisionSink that appends
// newline-delimited JSON records to a file from a dedicated writer
// goroutine. A full queue drops the record and increments the dropped counter
// rather than blocking the caller (spec §7 "Persistence errors. Non-fatal;
// the scheduler continues, counters record drops.").
type JSONLSink struct {
	ch      chan DecisionRecord
	done    chan struct{}
	log     logger.Logger
	dropped int64
}

// NewJSONLSink opens path for append and starts the writer goroutine.
func NewJSONLSink(path string, log logger.Logger) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	s := &JSONLSink{
		ch:   make(chan DecisionRecord, sinkQueueSize),
		done: make(chan struct{}),
		log:  log,
	}
	go s.run(f)
	return s, nil
}

func (s *JSONLSink) run(f *os.File) {
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<16)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	enc := json.NewEncoder(w)
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				w.Flush()
				close(s.done)
				return
			}
			if err := enc.Encode(r); err != nil && s.log != nil {
				s.log.Error("decision log encode failed", logger.Err(err))
			}
		case <-ticker.C:
			w.Flush()
		}
	}
}

// Record enqueues r without blocking; if the queue is full the record is
// dropped (spec §5: "writers must tolerate the sink being unavailable
// without stalling the tick loop").
func (s *JSONLSink) Record(r DecisionRecord) {
	select {
	case s.ch <- r:
	default:
		s.dropped++
		if s.log != nil {
			s.log.Warn("decision log queue full, dropping record", logger.String("symbol", r.Symbol))
		}
	}
}

// Dropped returns the count of records dropped due to a full queue.
func (s *JSONLSink) Dropped() int64 { return s.dropped }

// Close stops accepting new records and waits for the writer goroutine to
// flush and exit.
func (s *JSONLSink) Close() error {
	close(s.ch)
	<-s.done
	return nil
}

// NullSink discards every record; used in tests and as a safe default.
type NullSink struct{}

func (NullSink) Record(DecisionRecord) {}
func (NullSink) Close() error          { return nil }

// InMemorySink collects every record in a slice, used in tests to assert
// on exactly what was logged.
type InMemorySink struct {
	Records []DecisionRecord
}

func (s *InMemorySink) Record(r DecisionRecord) { s.Records = append(s.Records, r) }
func (s *InMemorySink) Close() error             { return nil }
