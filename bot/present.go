package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"Relay/core"
)

// MaxMessageLength is the Telegram limit for one text message.
const MaxMessageLength = 4096

const (
	notSupportedText = "This file is not supported."
	errorResponse    = "Sorry, I'm not feeling well today. Please try again later."
	helpText         = "Send me text, links, replies or text files: everything is collected into your context.\n" +
		"Use the buttons under the context size to send it to the model, clear it or see it.\n\n" +
		"/help - show this help\n" +
		"/clear - clear your context"
)

// Chunks splits text into pieces of at most MaxMessageLength characters.
// Joining the pieces gives back the original text.
func Chunks(text string) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += MaxMessageLength {
		end := start + MaxMessageLength
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// ActionMenu offers the three context actions for userId.
func ActionMenu(userId int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Send request", core.Action{Kind: core.ActionSend, UserId: userId}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("Clear context", core.Action{Kind: core.ActionClear, UserId: userId}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("See context", core.Action{Kind: core.ActionSee, UserId: userId}.Encode()),
		),
	)
}
