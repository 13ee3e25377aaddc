package tracker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

// Change types recorded in the audit log
const (
	ChangeTime   = "time_updated"
	ChangeAmount = "amount_updated"
	ChangePoints = "points_updated"
	ChangeValue  = "value_updated"
)

// Change is one notifiable field transition
type Change struct {
	Type    string
	Old     string
	New     string
	Message string
}

// changeRule decides whether a transition of one field is worth a
// notification. Values are compared after trimming whitespace; the raw
// values go to the audit log.
type changeRule struct {
	changeType string
	value      func(a *storage.Airdrop) string
	notify     func(prev, next string) bool
	message    func(prev, next string) string
}

// Price is deliberately absent: feed noise would flood the channel.
var changeRules = []changeRule{
	{
		changeType: ChangeTime,
		value:      func(a *storage.Airdrop) string { return a.Time },
		notify:     func(prev, next string) bool { return prev != next && next != "" },
		message: func(prev, next string) string {
			if prev == "" {
				return "时间已确定: " + next
			}
			return fmt.Sprintf("⚠️ 时间已变更: %s → %s", prev, next)
		},
	},
	{
		changeType: ChangeAmount,
		value:      func(a *storage.Airdrop) string { return a.Amount },
		notify:     revealed,
		message:    func(_, next string) string { return "数量已确定: " + next },
	},
	{
		changeType: ChangePoints,
		value:      func(a *storage.Airdrop) string { return a.Points },
		notify:     revealed,
		message:    func(_, next string) string { return "分数门槛已确定: " + next },
	},
	{
		changeType: ChangeValue,
		value:      func(a *storage.Airdrop) string { return formatValue(a.TotalValue) },
		notify: func(prev, next string) bool {
			v, err := strconv.ParseFloat(next, 64)
			return prev == "" && err == nil && v > 0
		},
		message: func(_, next string) string {
			v, _ := strconv.ParseFloat(next, 64)
			return fmt.Sprintf("预估价值已确定: $%.2f", v)
		},
	},
}

// revealed fires only on the first non-empty value
func revealed(prev, next string) bool {
	return prev == "" && next != ""
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// DetectChanges diffs an incoming observation against the stored row under
// the allow-list rules. Differences no rule accepts are dropped.
func DetectChanges(stored, incoming *storage.Airdrop) []Change {
	var changes []Change
	for _, rule := range changeRules {
		rawPrev, rawNext := rule.value(stored), rule.value(incoming)
		prev, next := strings.TrimSpace(rawPrev), strings.TrimSpace(rawNext)
		if !rule.notify(prev, next) {
			continue
		}
		changes = append(changes, Change{
			Type:    rule.changeType,
			Old:     rawPrev,
			New:     rawNext,
			Message: rule.message(prev, next),
		})
	}
	return changes
}

// Messages returns the human-readable lines of a change set
func Messages(changes []Change) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Message)
	}
	return out
}
