package telegram

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/domain"
)

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 100 + len(f.sent)}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func sampleAd() *domain.Ad {
	return &domain.Ad{
		ID:       42,
		Title:    "Bike <new>",
		Text:     "Road bike & helmet",
		Price:    decimal.RequireFromString("15000"),
		Quantity: 1,
		Category: "Sport",
		City:     "Moscow",
	}
}

func TestFormatAd(t *testing.T) {
	text := FormatAd(sampleAd())
	assert.True(t, strings.HasPrefix(text, "<b>Bike &lt;new&gt;</b>\nRoad bike &amp; helmet"))
	assert.Contains(t, text, "Price: 15000.00 RUB")
	assert.Contains(t, text, "City: Moscow")
	assert.NotContains(t, text, "Quantity")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "пр…", truncate("привет", 3))
}

func TestClient_PublishText(t *testing.T) {
	bot := &fakeBot{}
	c := NewClient(bot, -500)

	require.NoError(t, c.Publish(context.Background(), -1001, sampleAd(), false))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-1001), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "buy_ad_42", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Empty(t, bot.requests)
}

func TestClient_PublishPhotoAndPin(t *testing.T) {
	bot := &fakeBot{}
	c := NewClient(bot, -500)
	ad := sampleAd()
	ad.Photos = []string{"AgACAgIAAxkBAAIB"}

	require.NoError(t, c.Publish(context.Background(), -1001, ad, true))
	photo, ok := bot.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.FileID("AgACAgIAAxkBAAIB"), photo.File)

	require.Len(t, bot.requests, 1)
	pin := bot.requests[0].(tgbotapi.PinChatMessageConfig)
	assert.Equal(t, 101, pin.MessageID)
	assert.True(t, pin.DisableNotification)
}

func TestClient_Errors(t *testing.T) {
	bot := &fakeBot{sendErr: errors.New("Forbidden: bot was blocked by the user")}
	c := NewClient(bot, 0)

	err := c.Notify(context.Background(), 7, "hi")
	assert.ErrorContains(t, err, "blocked")
	assert.NoError(t, c.AlertStaff(context.Background(), "s", "m"), "alerts are off without a staff chat")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Publish(ctx, 1, sampleAd(), false), context.Canceled)
}

var escapedEntity = regexp.MustCompile(`&(amp|lt|gt|#34|#39);`)

// visibleText strips the markup Telegram parses away before counting limits.
func visibleText(s string) string {
	return html.UnescapeString(strings.NewReplacer("<b>", "", "</b>", "").Replace(s))
}

func assertWellFormed(t *testing.T, s string, limit int) {
	t.Helper()
	assert.Equal(t, strings.Count(s, "&"), len(escapedEntity.FindAllString(s, -1)), "split entity in %q", s[len(s)-40:])
	assert.Equal(t, 1, strings.Count(s, "<b>"))
	assert.Equal(t, 1, strings.Count(s, "</b>"))
	assert.LessOrEqual(t, utf8.RuneCountInString(visibleText(s)), limit)
}

func TestClient_LongTextKeepsEntitiesWhole(t *testing.T) {
	t.Run("Photo Caption", func(t *testing.T) {
		// The ampersand walks across the point where the caption is cut.
		for at := 940; at < 1000; at++ {
			bot := &fakeBot{}
			ad := sampleAd()
			ad.Photos = []string{"AgACAgIAAxkBAAIB"}
			ad.Text = strings.Repeat("a", at) + "&" + strings.Repeat("b", 2000)

			require.NoError(t, NewClient(bot, 0).Publish(context.Background(), -1001, ad, false))
			caption := bot.sent[0].(tgbotapi.PhotoConfig).Caption
			assertWellFormed(t, caption, captionLimit)
			assert.Contains(t, caption, "…")
			assert.True(t, strings.HasSuffix(caption, "City: Moscow"), "details survive the cut")
		}
	})

	t.Run("Message", func(t *testing.T) {
		bot := &fakeBot{}
		ad := sampleAd()
		ad.Title = strings.Repeat("<", 500)
		ad.Text = strings.Repeat("& ", 3000)

		require.NoError(t, NewClient(bot, 0).Publish(context.Background(), -1001, ad, false))
		assertWellFormed(t, bot.sent[0].(tgbotapi.MessageConfig).Text, messageLimit)
	})

	t.Run("Staff Alert", func(t *testing.T) {
		bot := &fakeBot{}
		require.NoError(t, NewClient(bot, -500).AlertStaff(context.Background(),
			"Top-up <request>", strings.Repeat("a&", 3000)))
		assertWellFormed(t, bot.sent[0].(tgbotapi.MessageConfig).Text, messageLimit)
	})
}
