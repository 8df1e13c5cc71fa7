package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/news"
	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/registry"
	"newsflash-bot/internal/storage"
	"newsflash-bot/internal/usage"
)

const helpText = `Commands:
/news [general|sports|tech|tv] - latest headlines
/general /sports /tech /tv - shortcuts
/download <password> - usage log as a spreadsheet
/help - this message`

type Pipeline interface {
	FetchCategory(ctx context.Context, category news.Category) (news.CategoryResult, error)
}

// Sources returns descriptors in display order.
type Sources interface {
	Lookup(category news.Category) []registry.Descriptor
}

// sender is the subset of *tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api            *tgbotapi.BotAPI
	client         sender
	pipeline       Pipeline
	sources        Sources
	tracker        *usage.Tracker
	repo           storage.Repository
	exportPassword string
	pollTimeout    int
	logger         *observability.Logger
}

func New(
	cfg *config.Config,
	p Pipeline,
	sources Sources,
	tracker *usage.Tracker,
	repo storage.Repository,
	logger *observability.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = cfg.Bot.Debug

	b := newBot(api, p, sources, tracker, repo, cfg.Bot.ExportPassword, logger)
	b.api = api
	b.pollTimeout = int(cfg.GetBotPollTimeout().Seconds())
	return b, nil
}

func newBot(client sender, p Pipeline, sources Sources, tracker *usage.Tracker, repo storage.Repository, password string, logger *observability.Logger) *Bot {
	return &Bot{
		client:         client,
		pipeline:       p,
		sources:        sources,
		tracker:        tracker,
		repo:           repo,
		exportPassword: password,
		pollTimeout:    60,
		logger:         logger,
	}
}

// Run long-polls for updates until ctx is cancelled. Each update is handled
// in its own goroutine so a slow category never blocks other chats.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", "username", b.api.Self.UserName)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Update handler panic", "update_id", update.UpdateID, "panic", fmt.Sprint(r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	trackCommand := "/" + command
	if command != "download" && args != "" {
		trackCommand += " " + args
	}
	b.track(msg.From, trackCommand)

	switch command {
	case "start":
		b.reply(chatID, "Welcome! Pick a category or use /help.", CategoryKeyboard())
	case "help":
		b.reply(chatID, helpText, nil)
	case "news", "latest":
		if args == "" {
			if command == "latest" {
				b.sendCategory(ctx, chatID, news.General)
				return
			}
			b.reply(chatID, "Pick a category:", CategoryKeyboard())
			return
		}
		category, err := news.ParseCategory(strings.ToLower(args))
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Unknown category %q.", args), CategoryKeyboard())
			return
		}
		b.sendCategory(ctx, chatID, category)
	case "general", "sports", "tech", "tv":
		b.sendCategory(ctx, chatID, news.Category(command))
	case "download":
		b.sendExport(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help.", nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.client.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", "error", err.Error())
	}

	category, err := categoryFromCallback(q.Data)
	if err != nil {
		b.logger.Warn("Ignoring callback", "data", q.Data, "error", err.Error())
		return
	}
	b.track(q.From, "button:"+string(category))

	if q.Message == nil || q.Message.Chat == nil {
		return
	}
	b.sendCategory(ctx, q.Message.Chat.ID, category)
}

func (b *Bot) sendCategory(ctx context.Context, chatID int64, category news.Category) {
	result, err := b.pipeline.FetchCategory(ctx, category)
	if err != nil {
		b.logger.Error("FetchCategory failed", "category", string(category), "error", err.Error())
		b.reply(chatID, "could not load now: "+err.Error(), RetryKeyboard(category))
		return
	}

	text := RenderCategory(category, b.sources.Lookup(category), result)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = RetryKeyboard(category)
	if _, err := b.client.Send(msg); err != nil {
		b.logger.Error("Failed to send category", "chat_id", chatID, "category", string(category), "error", err.Error())
	}
}

func (b *Bot) sendExport(ctx context.Context, chatID int64, password string) {
	if !usage.Authorized(password, b.exportPassword) {
		b.reply(chatID, "Wrong password.", nil)
		return
	}

	data, err := usage.ExportXLSX(ctx, b.repo)
	if err != nil {
		b.logger.Error("Export failed", "error", err.Error())
		b.reply(chatID, "Export failed, try again later.", nil)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "bot_usage.xlsx", Bytes: data})
	doc.Caption = "Usage log"
	if _, err := b.client.Send(doc); err != nil {
		b.logger.Error("Failed to send export", "chat_id", chatID, "error", err.Error())
	}
}

func (b *Bot) reply(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.client.Send(msg); err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "error", err.Error())
	}
}

func (b *Bot) track(from *tgbotapi.User, command string) {
	if b.tracker == nil || from == nil {
		return
	}
	b.tracker.Track(from.ID, from.UserName, command)
}
