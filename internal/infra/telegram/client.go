package telegram

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"

	"promo_rotation_bot/internal/domain/participant"
	domainTelegram "promo_rotation_bot/internal/domain/telegram"
)

const DefaultSendRate = 20 // Bot API calls per second

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
// Every Bot API call waits on one shared limiter.
type TelebotAdapter struct {
	bot     *telebot.Bot
	limiter *rate.Limiter
	siteURL string
}

func NewTelebotAdapter(b *telebot.Bot, perSecond int, siteURL string) *TelebotAdapter {
	if perSecond <= 0 {
		perSecond = DefaultSendRate
	}
	return &TelebotAdapter{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		siteURL: siteURL,
	}
}

func (tba *TelebotAdapter) ResolveChannel(ctx context.Context, channelID int64) (*domainTelegram.Channel, error) {
	if err := tba.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	chat, err := tba.bot.ChatByID(channelID)
	if err != nil {
		if isGone(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error resolving chat %d: %w", channelID, err)
	}
	return &domainTelegram.Channel{ID: chat.ID, Title: chat.Title, Type: string(chat.Type)}, nil
}

func (tba *TelebotAdapter) CanPost(ctx context.Context, ch *domainTelegram.Channel) (bool, error) {
	if err := tba.limiter.Wait(ctx); err != nil {
		return false, err
	}
	member, err := tba.bot.ChatMemberOf(&telebot.Chat{ID: ch.ID}, tba.bot.Me)
	if err != nil {
		if isGone(err) {
			return false, nil
		}
		return false, fmt.Errorf("error reading bot membership in %d: %w", ch.ID, err)
	}
	return canPostAs(telebot.ChatType(ch.Type), member), nil
}

func (tba *TelebotAdapter) SendPromotion(ctx context.Context, ch *domainTelegram.Channel, communityID int64, content participant.Content) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return err
	}
	opts := &telebot.SendOptions{
		ParseMode:             telebot.ModeHTML,
		ReplyMarkup:           promotionMarkup(content, communityID, tba.siteURL),
		DisableWebPagePreview: true,
	}
	text := formatPromotion(content)

	var what interface{} = text
	if content.BannerURL != "" {
		what = &telebot.Photo{File: telebot.FromURL(content.BannerURL), Caption: text}
	}
	if _, err := tba.bot.Send(&telebot.Chat{ID: ch.ID}, what, opts); err != nil {
		return fmt.Errorf("error sending promotion of %d to %d: %w", communityID, ch.ID, err)
	}
	return nil
}

// isGone reports errors meaning the chat is not reachable for the bot at all.
func isGone(err error) bool {
	return errors.Is(err, telebot.ErrChatNotFound) ||
		errors.Is(err, telebot.ErrKickedFromGroup) ||
		errors.Is(err, telebot.ErrKickedFromSuperGroup) ||
		errors.Is(err, telebot.ErrKickedFromChannel) ||
		errors.Is(err, telebot.ErrNotChannelMember)
}

// canPostAs decides whether a bot with membership m may publish in a chat of the given type.
// Channels only accept posts from admins holding the post right.
func canPostAs(chatType telebot.ChatType, m *telebot.ChatMember) bool {
	if m == nil {
		return false
	}
	channel := chatType == telebot.ChatChannel || chatType == telebot.ChatChannelPrivate
	switch m.Role {
	case telebot.Creator:
		return true
	case telebot.Administrator:
		return !channel || m.CanPostMessages
	case telebot.Member:
		return !channel
	case telebot.Restricted:
		return !channel && m.Member && m.CanSendMessages
	default:
		return false
	}
}
