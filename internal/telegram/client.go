// Package telegram delivers ads, direct messages and staff alerts through the
// Bot API.
package telegram

import (
	"context"
	"fmt"
	"html"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
)

// Bot is the part of *tgbotapi.BotAPI the client uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return bot, nil
}

type Client struct {
	bot         Bot
	staffChatID int64
}

// NewClient sends alerts to staffChatID. A zero staffChatID disables alerts.
func NewClient(bot Bot, staffChatID int64) *Client {
	return &Client{bot: bot, staffChatID: staffChatID}
}

// Publish posts the ad with its first photo, if any, and a purchase keyboard.
// When pin is set the post is pinned silently.
func (c *Client) Publish(ctx context.Context, chatID int64, ad *domain.Ad, pin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Buy", buyCallback(ad.ID)),
		tgbotapi.NewInlineKeyboardButtonData("Details", detailsCallback(ad.ID)),
	))
	var msg tgbotapi.Chattable
	if len(ad.Photos) > 0 && ad.Photos[0] != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(ad.Photos[0]))
		photo.Caption = formatAd(ad, captionLimit)
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		msg = photo
	} else {
		m := tgbotapi.NewMessage(chatID, formatAd(ad, messageLimit))
		m.ParseMode = tgbotapi.ModeHTML
		m.ReplyMarkup = keyboard
		msg = m
	}

	logger.ExternalServiceCall("telegram", "publish", "chat_id", chatID, "ad_id", ad.ID, "pin", pin)
	sent, err := c.bot.Send(msg)
	logger.ExternalServiceResult("telegram", "publish", err, "chat_id", chatID, "ad_id", ad.ID)
	if err != nil {
		return fmt.Errorf("publish ad %d to chat %d: %w", ad.ID, chatID, err)
	}
	if !pin {
		return nil
	}
	_, err = c.bot.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           sent.MessageID,
		DisableNotification: true,
	})
	logger.ExternalServiceResult("telegram", "pinChatMessage", err, "chat_id", chatID, "message_id", sent.MessageID)
	if err != nil {
		return fmt.Errorf("pin ad %d in chat %d: %w", ad.ID, chatID, err)
	}
	return nil
}

// Notify sends a plain direct message. Account ids are Telegram user ids.
func (c *Client) Notify(ctx context.Context, accountID int64, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Send(tgbotapi.NewMessage(accountID, truncate(message, messageLimit)))
	if err != nil {
		return fmt.Errorf("notify account %d: %w", accountID, err)
	}
	return nil
}

func (c *Client) AlertStaff(ctx context.Context, subject, message string) error {
	if c.staffChatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	subject = truncate(subject, titleLimit)
	message = truncate(message, messageLimit-utf8.RuneCountInString(subject)-1)
	m := tgbotapi.NewMessage(c.staffChatID, fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(subject), html.EscapeString(message)))
	m.ParseMode = tgbotapi.ModeHTML
	logger.ExternalServiceCall("telegram", "alertStaff", "chat_id", c.staffChatID, "subject", subject)
	_, err := c.bot.Send(m)
	logger.ExternalServiceResult("telegram", "alertStaff", err, "chat_id", c.staffChatID)
	if err != nil {
		return fmt.Errorf("alert staff chat: %w", err)
	}
	return nil
}
