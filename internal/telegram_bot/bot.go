package telegram_bot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/E10-Naganiom/backOFraud/internal/config"
	"github.com/E10-Naganiom/backOFraud/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sender is the part of the Bot API used to deliver messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NotificationRecorder counts delivery outcomes.
type NotificationRecorder interface {
	Notification(outcome string)
}

const (
	updatesTimeout     = 60
	defaultSendTimeout = 5 * time.Second
	descriptionPreview = 150
)

// Bot tells the supervisors chat about new and evaluated incidents.
type Bot struct {
	api         *tgbotapi.BotAPI
	sender      sender
	chatID      int64
	sendTimeout time.Duration
	recorder    NotificationRecorder
	logger      *zap.Logger
}

// NewBot creates a new Telegram bot instance. It returns nil when
// notifications are disabled or no token is configured.
func NewBot(cfg *config.Config, recorder NotificationRecorder, logger *zap.Logger) (*Bot, error) {
	if !cfg.Notifications.Enabled || cfg.Notifications.TelegramBotToken == "" {
		logger.Info("Telegram bot is disabled (notifications.enabled=false or token is empty)")
		return nil, nil
	}

	sendTimeout := cfg.Notifications.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	// The client timeout has to outlast the long poll for updates.
	client := &http.Client{Timeout: updatesTimeout*time.Second + sendTimeout}
	botAPI, err := tgbotapi.NewBotAPIWithClient(cfg.Notifications.TelegramBotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:         botAPI,
		sender:      botAPI,
		chatID:      cfg.Notifications.SupervisorChatID,
		sendTimeout: sendTimeout,
		recorder:    recorder,
		logger:      logger,
	}, nil
}

// Start begins listening for updates from Telegram
func (b *Bot) Start(ctx context.Context) error {
	if b == nil {
		return nil
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = updatesTimeout

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}
	switch message.Command() {
	case "start":
		b.handleStartCommand(message)
	case "help":
		b.handleHelpCommand(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help.")
	}
}

func (b *Bot) handleStartCommand(message *tgbotapi.Message) {
	name := "there"
	if message.From != nil && message.From.FirstName != "" {
		name = message.From.FirstName
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf(
		"Hi, %s!\n\n"+
			"I post fraud incident reports to the supervisors chat as they arrive and when they are evaluated.\n\n"+
			"Use /help to find the id of this chat.",
		name,
	))
}

// handleHelpCommand shows the chat id, which goes into
// notifications.supervisor_chat_id.
func (b *Bot) handleHelpCommand(message *tgbotapi.Message) {
	helpText := "Help:\n\n" +
		"/start - welcome message\n" +
		"/help - this help\n\n" +
		"Set notifications.supervisor_chat_id to this chat's id to receive incident reports.\n\n" +
		"Chat ID: " + strconv.FormatInt(message.Chat.ID, 10)
	b.sendMessage(message.Chat.ID, helpText)
}

// IncidentCreated announces a newly reported incident. It waits for
// Telegram at most sendTimeout or until ctx ends. Failures are logged.
func (b *Bot) IncidentCreated(ctx context.Context, incident *models.Incident) {
	if b == nil {
		return
	}
	b.notify(ctx, incident, "New incident reported")
}

// IncidentEvaluated announces a status change made by a supervisor.
func (b *Bot) IncidentEvaluated(ctx context.Context, incident *models.Incident) {
	if b == nil {
		return
	}
	b.notify(ctx, incident, "Incident evaluated")
}

func (b *Bot) notify(ctx context.Context, incident *models.Incident, headline string) {
	if b.chatID == 0 {
		b.logger.Warn("Supervisor chat is not configured, skipping notification",
			zap.Int64("incident_id", incident.ID))
		b.record("skipped")
		return
	}

	if err := b.send(ctx, tgbotapi.NewMessage(b.chatID, formatIncident(incident, headline))); err != nil {
		b.logger.Error("Failed to send incident notification",
			zap.Int64("incident_id", incident.ID),
			zap.Int64("chat_id", b.chatID),
			zap.Error(err),
		)
		b.record("failed")
		return
	}

	b.logger.Info("Incident notification sent", zap.Int64("incident_id", incident.ID))
	b.record("sent")
}

// formatIncident renders the notification text. Attacker contact details
// stay out of the chat.
func formatIncident(incident *models.Incident, headline string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", headline)
	fmt.Fprintf(&sb, "Incident ID: %d\n", incident.ID)
	fmt.Fprintf(&sb, "Title: %s\n", incident.Title)
	fmt.Fprintf(&sb, "Category ID: %d\n", incident.CategoryID)
	fmt.Fprintf(&sb, "Status: %s\n", models.StatusName(incident.StatusID))
	if incident.IsAnonymous {
		sb.WriteString("Reporter: anonymous\n")
	} else {
		fmt.Fprintf(&sb, "Reporter ID: %d\n", incident.UserID)
	}
	if incident.SupervisorID != nil {
		fmt.Fprintf(&sb, "Supervisor ID: %d\n", *incident.SupervisorID)
	}
	if n := len(incident.Evidence); n > 0 {
		fmt.Fprintf(&sb, "Evidence files: %d\n", n)
	}

	fmt.Fprintf(&sb, "\n%s", preview(incident.Description, descriptionPreview))
	return sb.String()
}

// preview cuts s to at most n runes.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// send delivers msg unless the deadline passes first. A Send that is still
// in flight finishes in the background, bounded by the HTTP client timeout.
func (b *Bot) send(ctx context.Context, msg tgbotapi.Chattable) error {
	timeout := b.sendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := b.sender.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

func (b *Bot) record(outcome string) {
	if b.recorder != nil {
		b.recorder.Notification(outcome)
	}
}

// sendMessage is a helper to send a simple text message
func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
