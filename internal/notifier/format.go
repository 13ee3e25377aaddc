package notifier

import (
	"fmt"
	"strings"

	"github.com/tonkeeper/tongo/ton"

	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

// FormatAirdrop renders the snapshot block used by every airdrop message.
// The "### name (token)" headline is omitted when showTitle is false.
func FormatAirdrop(a *storage.Airdrop, showTitle bool) string {
	var b strings.Builder

	if showTitle {
		fmt.Fprintf(&b, "### %s (%s)\n\n", orDefault(a.Name, "未知"), orDefault(a.Token, "未知"))
	}

	fmt.Fprintf(&b, "- **日期**: %s\n", orDefault(a.Date, "未知"))

	if strings.TrimSpace(a.Time) != "" {
		fmt.Fprintf(&b, "- **时间**: %s\n", a.Time)
	} else {
		b.WriteString("- **时间**: ⚠️ 时间未确定\n")
	}

	fmt.Fprintf(&b, "- **数量**: %s\n", orDefault(a.Amount, "未知"))
	fmt.Fprintf(&b, "- **分数门槛**: %s\n", orDefault(a.Points, "无"))

	if a.Price != nil && *a.Price > 0 {
		fmt.Fprintf(&b, "- **代币价格**: $%.6f\n", *a.Price)
		if a.TotalValue != nil && *a.TotalValue > 0 {
			fmt.Fprintf(&b, "- **预估价值**: $%.2f\n", *a.TotalValue)
		}
	} else {
		b.WriteString("- **代币价格**: ⚠️ 目前无法计算价值\n")
	}

	fmt.Fprintf(&b, "- **类型**: %s\n", orDefault(a.Type, "未知"))
	fmt.Fprintf(&b, "- **阶段**: Phase %d\n", a.Phase)

	if addr := DisplayContract(a.ContractAddress, a.ChainID); addr != "" {
		fmt.Fprintf(&b, "- **合约**: `%s`\n", addr)
	}

	return b.String()
}

// FormatStatusUpdate lists change messages followed by the current snapshot
func FormatStatusUpdate(a *storage.Airdrop, changes []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### %s (%s)\n\n", a.Name, a.Token)
	b.WriteString("**变化内容:**\n\n")
	for _, c := range changes {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\n---\n\n**当前信息:**\n\n")
	b.WriteString(FormatAirdrop(a, false))

	return b.String()
}

// FormatReminder renders reminder i (1-based) of total with the live
// remaining time in minutes
func FormatReminder(a *storage.Airdrop, i, total int, remainingMinutes float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## ⏰ 空投即将在 %.1f 分钟后开始！\n\n", remainingMinutes)
	fmt.Fprintf(&b, "**这是第 %d 次提醒（共 %d 次）**\n\n", i, total)
	b.WriteString(FormatAirdrop(a, true))

	return b.String()
}

func NewAirdropTitle(name string) string {
	return "新空投发现: " + name
}

func StatusUpdateTitle(name string) string {
	return "状态更新: " + name
}

func ReminderTitle(name string, i, total int) string {
	return fmt.Sprintf("空投提醒 (%d/%d): %s", i, total, name)
}

const SystemErrorTitle = "监控程序错误"

// FormatSystemError renders the body of a failed-pass notification
func FormatSystemError(err error) string {
	return fmt.Sprintf("处理空投数据时发生错误:\n\n%s", err)
}

// DisplayContract returns the contract address as shown to users. TON
// addresses (by chain hint or raw "wc:hex" form) are rendered in the
// user-friendly bounceable form; anything else is returned trimmed.
func DisplayContract(addr, chainID string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !isTONChain(chainID) && !strings.HasPrefix(addr, "0:") && !strings.HasPrefix(addr, "-1:") {
		return addr
	}

	acc, err := ton.ParseAccountID(addr)
	if err != nil {
		return addr
	}
	return acc.ToHuman(true, false)
}

func isTONChain(chainID string) bool {
	switch strings.ToLower(strings.TrimSpace(chainID)) {
	case "ton", "-239":
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
