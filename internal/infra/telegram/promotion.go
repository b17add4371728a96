package telegram

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/telebot.v3"

	"promo_rotation_bot/internal/domain/participant"
)

const (
	defaultDescription = "Come meet this community!"
	defaultCategory    = "General"
	defaultTags        = "Community"
	promotionFooter    = "Automatic cross-promotion"
)

// formatPromotion renders the HTML text (or photo caption) of a promotional post.
func formatPromotion(c participant.Content) string {
	description := orDefault(c.Description, defaultDescription)
	category := orDefault(c.Category, defaultCategory)
	tags := orDefault(c.Tags, defaultTags)

	var b strings.Builder
	fmt.Fprintf(&b, "📢 <b>%s</b>\n\n", html.EscapeString(c.Title))
	fmt.Fprintf(&b, "%s\n\n", html.EscapeString(description))
	fmt.Fprintf(&b, "📂 Category: <code>%s</code>\n", html.EscapeString(category))
	fmt.Fprintf(&b, "🏷️ Tags: <code>%s</code>\n\n", html.EscapeString(tags))
	b.WriteString("<i>" + promotionFooter + "</i>")
	return b.String()
}

// promotionMarkup builds the link buttons under a post. Buttons whose URL is unknown are left out.
func promotionMarkup(c participant.Content, communityID int64, siteURL string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	var row []telebot.Btn
	if c.InviteURL != "" {
		row = append(row, markup.URL("Join community", c.InviteURL))
	}
	if siteURL != "" {
		base := strings.TrimRight(siteURL, "/")
		row = append(row,
			markup.URL("Community page", fmt.Sprintf("%s/community/%d", base, communityID)),
			markup.URL("Promote yours", base),
		)
	}
	if len(row) > 0 {
		markup.Inline(markup.Row(row...))
	}
	return markup
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
