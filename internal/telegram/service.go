package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const defaultStartReply = "Hi! This bot signs you in to SuperMock and sends interview updates."

// StartHandler handles a /start command. payload is the deep-link argument
// (empty for a plain /start). The returned text is sent back to the user;
// an empty string sends nothing.
type StartHandler func(ctx context.Context, payload string, from User) string

// Service provides methods for interacting with the Telegram Bot API.
type Service struct {
	logger  logrus.FieldLogger
	bot     *tgbotapi.BotAPI
	onStart StartHandler
}

// NewService creates a new Telegram Service against the public Bot API.
func NewService(botToken string, logger logrus.FieldLogger) (*Service, error) {
	return NewServiceWithEndpoint(botToken, tgbotapi.APIEndpoint, http.DefaultClient, logger)
}

// NewServiceWithEndpoint creates a Service against a custom Bot API endpoint
// (format "https://host/bot%s/%s").
func NewServiceWithEndpoint(botToken, endpoint string, client *http.Client, logger logrus.FieldLogger) (*Service, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.WithField("bot", bot.Self.UserName).Info("Authorized on bot account")

	return &Service{
		logger: logger,
		bot:    bot,
	}, nil
}

// Username returns the bot's username without the leading @.
func (s *Service) Username() string {
	return s.bot.Self.UserName
}

// SetStartHandler installs the /start handler. It must be called before StartPolling.
func (s *Service) SetStartHandler(h StartHandler) {
	s.onStart = h
}

// SendMessage sends a text message to a given chat ID.
func (s *Service) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := s.bot.Send(msg)
	return err
}

// CanMessage reports whether the bot is able to write to the user, which is
// only true once the user has started the bot and has not blocked it.
// A Telegram refusal is (false, nil); transport failures are returned as errors.
func (s *Service) CanMessage(ctx context.Context, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := s.bot.Request(tgbotapi.NewChatAction(userID, tgbotapi.ChatTyping))
	if err == nil {
		return true, nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"code":    apiErr.Code,
		}).Debug("Bot cannot message user")
		return false, nil
	}
	return false, fmt.Errorf("probe chat %d: %w", userID, err)
}

// StartPolling runs a long-polling loop until ctx is cancelled.
// It should be run in a separate goroutine.
func (s *Service) StartPolling(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := s.bot.GetUpdatesChan(u)
	defer s.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches a single update. Only /start is handled.
func (s *Service) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !update.Message.IsCommand() {
		return
	}
	if update.Message.Command() == "start" {
		s.handleStartCommand(ctx, update.Message)
	}
}

func (s *Service) handleStartCommand(ctx context.Context, message *tgbotapi.Message) {
	s.logger.WithFields(logrus.Fields{
		"user_id": message.From.ID,
		"chat_id": message.Chat.ID,
	}).Debug("Received /start command")

	reply := defaultStartReply
	if s.onStart != nil {
		reply = s.onStart(ctx, message.CommandArguments(), userFromBot(message.From))
	}
	if reply == "" {
		return
	}
	if err := s.SendMessage(message.Chat.ID, reply); err != nil {
		s.logger.WithError(err).WithField("chat_id", message.Chat.ID).Warn("Failed to answer /start")
	}
}

func userFromBot(u *tgbotapi.User) User {
	return User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
}
