// Package bot mirrors hub events to linked Telegram chats. It is an optional
// side-channel: delivery failures are logged and dropped, and nothing ever
// depends on a message having arrived.
package bot

import (
	"crypto/hmac"
	"fmt"
	"log"
	"strings"
	"time"

	"neighborly/internal/core"
	"neighborly/internal/web"

	tele "gopkg.in/telebot.v3"
)

// Bot represents the Telegram bot
type Bot struct {
	bot     *tele.Bot
	service *core.Service
	secret  string
}

// NewBot creates a new Bot instance
func NewBot(token string, service *core.Service, secret string) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &Bot{bot: b, service: service, secret: secret}
	bot.registerHandlers()
	return bot, nil
}

// Start begins polling for updates. Blocks; run in a goroutine.
func (b *Bot) Start() {
	log.Println("Telegram bot polling started")
	b.bot.Start()
}

// Stop stops the poller
func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", func(c tele.Context) error {
		return c.Send("Hi! Open your profile in the app and send me:\n/link <username> <code>")
	})

	// /link <username> <code> ties this chat to an account. The code is the
	// HMAC the profile endpoint shows, so only someone logged in as that
	// user can produce it.
	b.bot.Handle("/link", func(c tele.Context) error {
		args := strings.Fields(c.Message().Payload)
		if len(args) != 2 {
			return c.Send("Usage: /link <username> <code>")
		}
		username, code := args[0], args[1]

		expected := web.LinkCode(username, b.secret)
		if !hmac.Equal([]byte(code), []byte(expected)) {
			return c.Send("That code doesn't match. Copy it from your profile page.")
		}

		user, err := b.service.GetUserByUsername(username)
		if err != nil {
			return c.Send("No such account.")
		}

		if err := b.service.LinkTelegramChat(user.ID, c.Chat().ID); err != nil {
			log.Printf("bot: failed to link chat for user %d: %v", user.ID, err)
			return c.Send("Linking failed, try again later.")
		}

		return c.Send(fmt.Sprintf("Linked! You'll get notifications for %s here.", user.DisplayName))
	})
}

// Deliver implements hub.Mirror: events addressed to users with a linked
// Telegram chat are sent as a plain-text summary
func (b *Bot) Deliver(recipients []int64, event interface{}) {
	text := summarize(event)
	if text == "" {
		return
	}

	// The acting party doesn't need a ping about its own action
	var actorID int64
	switch e := event.(type) {
	case core.NewMessageEvent:
		if e.Message != nil {
			actorID = e.Message.SenderID
		}
	case core.TransactionStartRequestEvent:
		actorID = e.FromUserID
	}

	for _, userID := range recipients {
		if userID == actorID {
			continue
		}
		user, err := b.service.GetUserByID(userID)
		if err != nil || user.TelegramChatID == nil {
			continue
		}
		if _, err := b.bot.Send(tele.ChatID(*user.TelegramChatID), text); err != nil {
			log.Printf("bot: failed to notify user %d: %v", userID, err)
		}
	}
}

func summarize(event interface{}) string {
	switch e := event.(type) {
	case core.NewMessageEvent:
		sender := "Someone"
		if e.Message != nil && e.Message.Sender != nil {
			sender = e.Message.Sender.DisplayName
		}
		return fmt.Sprintf("💬 New message from %s", sender)
	case core.TransactionStartRequestEvent:
		if e.BothRequested {
			return "🤝 Both sides agreed to start — the task is now in progress"
		}
		return "🤝 The other party asked to start the task"
	default:
		return ""
	}
}
