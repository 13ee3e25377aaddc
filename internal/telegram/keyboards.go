package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

// MainKeyboard returns the main menu keyboard
func MainKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📅 今日空投", CallbackData: "today"},
				{Text: "⏰ 待提醒", CallbackData: "due"},
			},
			{
				{Text: "🔎 按日期查询", CallbackData: "date"},
			},
		},
	}
}

// EventsKeyboard returns one detail button per event
func EventsKeyboard(events []storage.Airdrop) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton

	for _, e := range events {
		label := fmt.Sprintf("%s · Phase %d", e.Name, e.Phase)
		if e.Time != "" {
			label = e.Time + " " + label
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: label, CallbackData: fmt.Sprintf("ev:%d", e.ID)},
		})
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ 返回", CallbackData: "back"},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// EventKeyboard returns the navigation for an event detail view
func EventKeyboard(date string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⬅️ 返回列表", CallbackData: "day:" + date},
			},
			{
				{Text: "🏠 主菜单", CallbackData: "back"},
			},
		},
	}
}

// BackKeyboard returns a simple back button
func BackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⬅️ 返回", CallbackData: "back"},
			},
		},
	}
}
