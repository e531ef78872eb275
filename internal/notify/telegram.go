package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/pkg/contracts/domain"
)

// Telegram sends run results to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegram connects to the Bot API. The token is checked with getMe, so
// a wrong token fails here rather than after the first run.
func NewTelegram(cfg config.TelegramConfig, logger *slog.Logger) (*Telegram, error) {
	return NewTelegramWithEndpoint(cfg, tgbotapi.APIEndpoint, http.DefaultClient, logger)
}

// NewTelegramWithEndpoint is NewTelegram against a custom Bot API endpoint.
// endpoint has the tgbotapi.APIEndpoint format.
func NewTelegramWithEndpoint(cfg config.TelegramConfig, endpoint string, client *http.Client, logger *slog.Logger) (*Telegram, error) {
	if !cfg.Enabled() {
		return nil, apperrors.NewConfigError("telegram token and chat_id are required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, apperrors.NewConfigError("connect telegram bot", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: cfg.ChatID,
		logger: infrastructure.WithComponent(logger, "notify.telegram").With(
			slog.String("bot", bot.Self.UserName)),
	}, nil
}

// Notify reports a finished run. It has the signature of a runner finish
// hook; snapshots of unfinished runs are ignored.
func (t *Telegram) Notify(ctx context.Context, snapshot domain.RunSnapshot) {
	if !snapshot.IsTerminal() {
		return
	}
	logger := t.logger.With(slog.String("run_id", snapshot.RunID))

	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, messageText(snapshot))); err != nil {
		infrastructure.WithError(logger, err).WarnContext(ctx, "telegram message not sent")
		return
	}

	sent := 0
	for _, path := range snapshot.Outputs {
		if _, err := os.Stat(path); err != nil {
			infrastructure.WithError(logger, err).WarnContext(ctx, "output file missing",
				slog.String("file", path))
			continue
		}
		doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(path))
		doc.Caption = filepath.Base(path)
		if _, err := t.bot.Send(doc); err != nil {
			infrastructure.WithError(logger, err).WarnContext(ctx, "telegram document not sent",
				slog.String("file", path))
			continue
		}
		sent++
	}
	infrastructure.AddSpanEvent(ctx, "notify.telegram")
	logger.InfoContext(ctx, "run reported to telegram", slog.Int("documents", sent))
}

func messageText(snapshot domain.RunSnapshot) string {
	title := "Проверка журналов"
	if snapshot.Kind == domain.RunKindReport {
		title = "Отчёт по успеваемости"
	}
	if snapshot.Status == domain.RunStatusFailed {
		return fmt.Sprintf("%s: ошибка.\n%s", title, snapshot.Message)
	}
	return fmt.Sprintf("%s: готово.\n%s", title, snapshot.Message)
}
