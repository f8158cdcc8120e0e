package trace

import "sync"

// TraceLevel controls the verbosity of round tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelRounds captures every auction round's bids, winners, and rejections.
	TraceLevelRounds TraceLevel = "rounds"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelRounds: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// MarketTrace collects round records. Safe for concurrent use.
type MarketTrace struct {
	mu     sync.Mutex
	level  TraceLevel
	rounds []RoundRecord
}

// NewMarketTrace creates a MarketTrace ready for recording at the given level.
func NewMarketTrace(level TraceLevel) *MarketTrace {
	return &MarketTrace{level: level, rounds: make([]RoundRecord, 0)}
}

// Enabled reports whether records will be kept. A nil trace is disabled.
func (mt *MarketTrace) Enabled() bool {
	return mt != nil && mt.level == TraceLevelRounds
}

// RecordRound appends a round record. No-op when disabled.
func (mt *MarketTrace) RecordRound(record RoundRecord) {
	if !mt.Enabled() {
		return
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.rounds = append(mt.rounds, record)
}

// Rounds returns a copy of the recorded rounds in order.
func (mt *MarketTrace) Rounds() []RoundRecord {
	if mt == nil {
		return nil
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]RoundRecord(nil), mt.rounds...)
}
