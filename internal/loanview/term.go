package loanview

import (
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-lend/config"
)

// Term is a block count rendered as a human duration.
type Term struct {
	Blocks   int64  `json:"blocks"`
	Value    int64  `json:"value"`
	Interval string `json:"interval"` // e.g. "days" or "hour ago"
}

// NewTerm converts blocks to the largest whole unit among minutes, hours,
// days and months (30 days), rounding half up at each step. Negative
// counts render with an "ago" suffix.
func NewTerm(blocks int64) Term {
	t := Term{Blocks: blocks, Value: blocks * int64(config.BlockInterval/time.Minute)}
	negative := t.Value < 0
	if negative {
		t.Value = -t.Value
	}

	unit := "minute"
	if t.Value > 59 {
		t.Value, unit = roundDiv(t.Value, 60), "hour"
		if t.Value > 23 {
			t.Value, unit = roundDiv(t.Value, 24), "day"
			if t.Value > 29 {
				t.Value, unit = roundDiv(t.Value, 30), "month"
			}
		}
	}

	t.Interval = pluralize(unit, t.Value)
	if negative {
		t.Interval += " ago"
	}
	return t
}

// String returns e.g. "5 days" or "3 hours ago".
func (t Term) String() string {
	return fmt.Sprintf("%d %s", t.Value, t.Interval)
}

func roundDiv(v, d int64) int64 {
	return (v + d/2) / d
}

func pluralize(word string, n int64) string {
	if n <= 1 {
		return word
	}
	return word + "s"
}
