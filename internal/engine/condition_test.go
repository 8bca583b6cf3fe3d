package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crypto-backtest/pkg/utils"
)

func snap(values map[string]float64) Snapshot {
	s := make(Snapshot, len(values))
	for k, v := range values {
		s[k] = utils.ToPointer(v)
	}
	return s
}

func TestEvaluateCondition_Comparisons(t *testing.T) {
	curr := snap(map[string]float64{IndRSI: 42})

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"gt true", Condition{Indicator: IndRSI, Operator: OpGt, Value: 40}, true},
		{"gt false on equal", Condition{Indicator: IndRSI, Operator: OpGt, Value: 42}, false},
		{"gte true on equal", Condition{Indicator: IndRSI, Operator: OpGte, Value: 42}, true},
		{"lt true", Condition{Indicator: IndRSI, Operator: OpLt, Value: 50}, true},
		{"lte false", Condition{Indicator: IndRSI, Operator: OpLte, Value: 40}, false},
		{"eq within epsilon", Condition{Indicator: IndRSI, Operator: OpEq, Value: 42}, true},
		{"eq outside epsilon", Condition{Indicator: IndRSI, Operator: OpEq, Value: 42.1}, false},
		{"missing indicator is false", Condition{Indicator: IndSMA, Operator: OpGt, Value: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluateCondition(tt.cond, curr, nil))
		})
	}
}

func TestEvaluateCondition_Crossovers(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		prev Snapshot
		curr Snapshot
		want bool
	}{
		{
			name: "cross above fires when previous was at or below",
			cond: Condition{Indicator: IndRSI, Operator: OpCrossAbove, Value: 30},
			prev: snap(map[string]float64{IndRSI: 30}),
			curr: snap(map[string]float64{IndRSI: 31}),
			want: true,
		},
		{
			name: "cross above does not fire while already above",
			cond: Condition{Indicator: IndRSI, Operator: OpCrossAbove, Value: 30},
			prev: snap(map[string]float64{IndRSI: 35}),
			curr: snap(map[string]float64{IndRSI: 40}),
			want: false,
		},
		{
			name: "cross below fires when previous was at or above",
			cond: Condition{Indicator: IndRSI, Operator: OpCrossBelow, Value: 70},
			prev: snap(map[string]float64{IndRSI: 70}),
			curr: snap(map[string]float64{IndRSI: 65}),
			want: true,
		},
		{
			name: "no previous snapshot means no crossover",
			cond: Condition{Indicator: IndRSI, Operator: OpCrossAbove, Value: 30},
			prev: nil,
			curr: snap(map[string]float64{IndRSI: 31}),
			want: false,
		},
		{
			name: "warming-up previous value means no crossover",
			cond: Condition{Indicator: IndRSI, Operator: OpCrossAbove, Value: 30},
			prev: Snapshot{},
			curr: snap(map[string]float64{IndRSI: 31}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluateCondition(tt.cond, tt.curr, tt.prev))
		})
	}
}

func TestEvaluateConditions_LeftFold(t *testing.T) {
	// rsi=10 (lt 20 true), sma=5 (gt 3 true), close=100 (lt 50 false)
	curr := snap(map[string]float64{IndRSI: 10, IndSMA: 5, IndClose: 100})

	t.Run("empty list is false", func(t *testing.T) {
		assert.False(t, EvaluateConditions(nil, curr, nil))
	})

	t.Run("fold is strictly left to right", func(t *testing.T) {
		// (false OR true) AND false == false
		conds := []Condition{
			{Indicator: IndClose, Operator: OpLt, Value: 50},
			{Indicator: IndRSI, Operator: OpLt, Value: 20, Logic: LogicOr},
			{Indicator: IndClose, Operator: OpLt, Value: 50, Logic: LogicAnd},
		}
		assert.False(t, EvaluateConditions(conds, curr, nil))

		// (true AND false) OR true == true
		conds = []Condition{
			{Indicator: IndRSI, Operator: OpLt, Value: 20},
			{Indicator: IndClose, Operator: OpLt, Value: 50, Logic: LogicAnd},
			{Indicator: IndSMA, Operator: OpGt, Value: 3, Logic: LogicOr},
		}
		assert.True(t, EvaluateConditions(conds, curr, nil))
	})

	t.Run("all AND chain", func(t *testing.T) {
		conds := []Condition{
			{Indicator: IndRSI, Operator: OpLt, Value: 20},
			{Indicator: IndSMA, Operator: OpGt, Value: 3, Logic: LogicAnd},
		}
		assert.True(t, EvaluateConditions(conds, curr, nil))
	})
}
