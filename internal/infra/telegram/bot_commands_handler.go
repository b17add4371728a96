package telegram

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := handlerLogger(startHelpLogger, "/start", c)
		logCtx.Info("Processing /start command")

		if c.Chat() != nil && c.Chat().Type == telebot.ChatPrivate {
			return c.Send("Hi! I rotate promotional posts between the communities of our directory.\n" +
				"Add me to your community group and send /panel there to get started.")
		}
		return c.Send("Hi! Administrators can open the cross-promotion panel with /panel.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		logCtx := handlerLogger(startHelpLogger, "/help", c)
		logCtx.Info("Processing /help command")
		return c.Send(helpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func helpText() string {
	var helpText strings.Builder
	helpText.WriteString("Available commands for community administrators:\n\n")
	helpText.WriteString("`/panel`\n - Show the cross-promotion panel of this group.\n\n")
	helpText.WriteString("`/set_channel <channel_id>`\n - Choose the channel where promotions of other communities are posted.\n\n")
	helpText.WriteString("`/help`\n - Show this help message.\n\n")
	helpText.WriteString("While promotion is on, your community is posted to other channels at most every 6.5 minutes (3 minutes on Pro and VIP plans).")
	return helpText.String()
}
