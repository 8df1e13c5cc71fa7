package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsflash-bot/internal/news"
	"newsflash-bot/internal/registry"
)

const (
	telegramMessageLimit = 4096
	callbackPrefix       = "cat:"
)

var categoryTitles = map[news.Category]string{
	news.General: "General",
	news.Sports:  "Sports",
	news.Tech:    "Tech",
	news.TV:      "TV",
}

// RenderCategory formats a category result as Telegram HTML, sources in
// registry order. Sources missing from result render as failed.
func RenderCategory(category news.Category, sources []registry.Descriptor, result news.CategoryResult) string {
	header := fmt.Sprintf("📰 <b>Latest headlines: %s</b>\n\n", html.EscapeString(categoryTitle(category)))

	var b strings.Builder
	b.WriteString(header)
	for _, d := range sources {
		block := renderSource(d, result[d.ID])
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(block) > telegramMessageLimit-1 {
			b.WriteString("…")
			break
		}
		b.WriteString(block)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSource(d registry.Descriptor, res news.SourceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s:</b>\n", html.EscapeString(d.DisplayName()))

	for i, it := range res.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, renderItem(it))
	}

	switch {
	case len(res.Items) == 0 && res.Error != "":
		fmt.Fprintf(&b, "could not load now: %s\n", html.EscapeString(res.Error))
	case len(res.Items) == 0:
		b.WriteString("no news right now\n")
	case res.Error != "":
		fmt.Fprintf(&b, "⚠️ %s\n", html.EscapeString(res.Error))
	}

	b.WriteString("\n")
	return b.String()
}

func renderItem(it news.Item) string {
	text := it.Title
	if it.PublishedAt != "" && it.PublishedAt != news.NoTime {
		text = it.PublishedAt + " - " + it.Title
	}
	text = html.EscapeString(text)

	if it.Link == "" || it.Link == news.NoLink {
		return text
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(it.Link), text)
}

func categoryTitle(c news.Category) string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return string(c)
}

// CategoryKeyboard offers one button per category.
func CategoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(news.Categories))
	for _, c := range news.Categories {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(categoryTitle(c), callbackPrefix+string(c)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// RetryKeyboard re-requests category when pressed.
func RetryKeyboard(category news.Category) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Retry", callbackPrefix+string(category)),
		),
	)
}

func categoryFromCallback(data string) (news.Category, error) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return "", fmt.Errorf("unexpected callback data: %q", data)
	}
	return news.ParseCategory(strings.TrimPrefix(data, callbackPrefix))
}
