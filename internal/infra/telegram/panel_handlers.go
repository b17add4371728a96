package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"promo_rotation_bot/internal/app"
	idb "promo_rotation_bot/internal/infra/database"
)

// Callback buttons of the control panel. The community is always the chat the panel lives in.
var (
	panelMenu  = &telebot.ReplyMarkup{}
	btnToggle  = panelMenu.Data("Toggle promotion", "panel_toggle")
	btnRefresh = panelMenu.Data("🔄 Refresh", "panel_refresh")
	btnConfig  = panelMenu.Data("⚙️ Configure channel", "panel_config")
)

// RegisterPanelHandlers registers the /panel and /set_channel commands and the panel buttons.
// All of them are restricted to administrators of the group they are used in.
func RegisterPanelHandlers(ctx context.Context, b *telebot.Bot, panelService *app.PanelService, baseLogger *logrus.Entry) {
	panelLogger := baseLogger.WithField("handler_group", "panel")

	b.Handle("/panel", func(c telebot.Context) error {
		logCtx := handlerLogger(panelLogger, "/panel", c)
		logCtx.Info("Command received")

		if err := requireCommunityAdmin(c); err != nil {
			return replyError(c, logCtx, err)
		}
		view, err := panelService.RenderPanel(ctx, c.Chat().ID)
		if err != nil {
			return replyError(c, logCtx, err)
		}
		return c.Send(panelText(view), panelOptions(view))
	})

	b.Handle("/set_channel", func(c telebot.Context) error {
		logCtx := handlerLogger(panelLogger, "/set_channel", c)
		logCtx.Info("Command received")

		if err := requireCommunityAdmin(c); err != nil {
			return replyError(c, logCtx, err)
		}
		channelID, err := parseChannelArg(c.Args())
		if err != nil {
			logCtx.WithError(err).Warn("Invalid command format")
			return c.Send("Usage: /set_channel <channel_id>\nThe id of a channel looks like -1001234567890.")
		}
		logCtx = logCtx.WithField("channel_id", channelID)

		view, err := panelService.ConfigureChannel(ctx, c.Chat().ID, channelID)
		if err != nil {
			return replyError(c, logCtx, err)
		}
		logCtx.Info("Promotion channel set")
		return c.Send(panelText(view), panelOptions(view))
	})

	b.Handle(&btnToggle, panelCallback(panelLogger, "toggle", func(communityID int64) (*app.PanelView, error) {
		return panelService.Toggle(ctx, communityID)
	}))
	b.Handle(&btnRefresh, panelCallback(panelLogger, "refresh", func(communityID int64) (*app.PanelView, error) {
		return panelService.Refresh(ctx, communityID)
	}))

	b.Handle(&btnConfig, func(c telebot.Context) error {
		logCtx := handlerLogger(panelLogger, "config", c)
		if err := requireCommunityAdmin(c); err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: userMessage(err), ShowAlert: true})
		}
		_ = c.Respond()
		logCtx.Debug("Channel configuration instructions sent")
		return c.Send(configInstructions)
	})
}

const configInstructions = "To choose where promotions of other communities are posted:\n" +
	"1. Add me to your channel as an administrator with the right to post messages.\n" +
	"2. Send /set_channel <channel_id> here, for example /set_channel -1001234567890."

func panelCallback(logger *logrus.Entry, action string, do func(communityID int64) (*app.PanelView, error)) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		logCtx := handlerLogger(logger, action, c)
		logCtx.Info("Panel button pressed")

		if err := requireCommunityAdmin(c); err != nil {
			logCtx.WithError(err).Warn("Panel action rejected")
			return c.Respond(&telebot.CallbackResponse{Text: userMessage(err), ShowAlert: true})
		}
		view, err := do(c.Chat().ID)
		if err != nil {
			logError(logCtx, err)
			return c.Respond(&telebot.CallbackResponse{Text: userMessage(err), ShowAlert: true})
		}

		err = c.Edit(panelText(view), panelOptions(view))
		if err != nil && !errors.Is(err, telebot.ErrMessageNotModified) && !errors.Is(err, telebot.ErrSameMessageContent) {
			logCtx.WithError(err).Warn("Failed to update panel message")
		}
		return c.Respond()
	}
}

// requireCommunityAdmin allows only the creator and administrators of a group chat.
func requireCommunityAdmin(c telebot.Context) error {
	chat := c.Chat()
	if chat == nil || c.Sender() == nil {
		return app.ErrNotCommunityAdmin
	}
	if chat.Type != telebot.ChatGroup && chat.Type != telebot.ChatSuperGroup {
		return errNotInGroup
	}
	member, err := c.Bot().ChatMemberOf(chat, c.Sender())
	if err != nil {
		return fmt.Errorf("error checking admin rights: %w", err)
	}
	if member.Role != telebot.Creator && member.Role != telebot.Administrator {
		return app.ErrNotCommunityAdmin
	}
	return nil
}

var errNotInGroup = errors.New("panel used outside of a group")

func parseChannelArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one argument, got %d", len(args))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid channel id %q: %w", args[0], err)
	}
	if id >= 0 {
		return 0, fmt.Errorf("channel id %d must be negative", id)
	}
	return id, nil
}

func panelText(v *app.PanelView) string {
	status := "🔴 Off"
	if v.Enabled {
		status = "🟢 On"
	}
	channel := "not configured"
	if v.DestinationChannelID != nil {
		channel = fmt.Sprintf("<code>%d</code>", *v.DestinationChannelID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Cross-promotion panel · %s</b>\n\n", html.EscapeString(v.DisplayName))
	fmt.Fprintf(&b, "Promotion channel: %s\n", channel)
	fmt.Fprintf(&b, "Status: %s\n\n", status)
	fmt.Fprintf(&b, "Promoted today: <code>%d</code> communities\n", v.Sent)
	fmt.Fprintf(&b, "Promoted by others today: <code>%d</code> times\n", v.Received)
	fmt.Fprintf(&b, "Total received: <code>%d</code>", v.TotalReceived)
	return b.String()
}

func panelMarkup(v *app.PanelView) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	toggle := btnToggle
	if v.Enabled {
		toggle.Text = "⏹ Turn off"
	} else {
		toggle.Text = "▶️ Turn on"
	}
	markup.Inline(
		markup.Row(toggle, btnRefresh),
		markup.Row(btnConfig),
	)
	return markup
}

func panelOptions(v *app.PanelView) *telebot.SendOptions {
	return &telebot.SendOptions{ParseMode: telebot.ModeHTML, ReplyMarkup: panelMarkup(v)}
}

// userMessage maps service errors to what the admin sees.
func userMessage(err error) string {
	switch {
	case errors.Is(err, errNotInGroup):
		return "Use this command inside your community group."
	case errors.Is(err, app.ErrNotCommunityAdmin):
		return "Only administrators of this community can do that."
	case errors.Is(err, idb.ErrParticipantNotFound):
		return "This community is not registered for cross-promotion yet."
	case errors.Is(err, app.ErrChannelNotConfigured):
		return "Configure a promotion channel before turning promotion on."
	case errors.Is(err, app.ErrChannelNotPostable):
		return "I cannot post to that channel. Add me as an administrator with the right to post messages."
	default:
		return "Something went wrong. Please try again later."
	}
}

func replyError(c telebot.Context, logCtx *logrus.Entry, err error) error {
	logError(logCtx, err)
	return c.Send(userMessage(err))
}

func logError(logCtx *logrus.Entry, err error) {
	switch {
	case errors.Is(err, errNotInGroup), errors.Is(err, app.ErrNotCommunityAdmin),
		errors.Is(err, idb.ErrParticipantNotFound), errors.Is(err, app.ErrChannelNotConfigured),
		errors.Is(err, app.ErrChannelNotPostable):
		logCtx.WithError(err).Warn("Request rejected")
	default:
		logCtx.WithError(err).Error("Request failed")
	}
}

func handlerLogger(base *logrus.Entry, handler string, c telebot.Context) *logrus.Entry {
	fields := logrus.Fields{"handler": handler}
	if c.Sender() != nil {
		fields["sender_id"] = c.Sender().ID
	}
	if c.Chat() != nil {
		fields["community_id"] = c.Chat().ID
	}
	return base.WithFields(fields)
}
