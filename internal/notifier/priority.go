package notifier

// Priority is the tier of a notification. It only affects the title marker.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Glyph returns the marker prepended to titles of this tier
func (p Priority) Glyph() string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityMedium:
		return "🟡"
	case PriorityUrgent:
		return "🚨"
	default:
		return ""
	}
}

// Decorate prefixes title with the tier marker
func (p Priority) Decorate(title string) string {
	if g := p.Glyph(); g != "" {
		return g + " " + title
	}
	return title
}

// Notification tags
const (
	TagNewAirdrop   = "新空投"
	TagStatusChange = "状态变化"
	TagReminder     = "紧急提醒"
	TagSystemError  = "系统错误"
)
