// Package telegram connects the dispatcher to the Telegram Bot API using
// long polling.
package telegram

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nuxo/internal/form"
	"nuxo/internal/log"
)

// MaxMessageLength is Telegram's limit for one text message, in UTF-16 units.
const MaxMessageLength = 4096

const pollTimeout = 60

// API is the subset of *tgbotapi.BotAPI the adapter uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev form.Event) []form.Response
}

// Limiter refuses events from a chat sending too fast.
type Limiter interface {
	Allow(key string) bool
}

const msgSlowDown = "⏳ Muitas mensagens seguidas. Aguarde um instante."

type Adapter struct {
	api        API
	dispatcher Dispatcher
	limiter    Limiter
	workers    int
	logger     *log.Logger
}

// New connects to Telegram with token.
func New(token string, dispatcher Dispatcher, workers int, logger *log.Logger) (*Adapter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	a := NewWithAPI(api, dispatcher, workers, logger)
	a.logger.Info("Authorized on Telegram", "username", api.Self.UserName)
	return a, nil
}

func NewWithAPI(api API, dispatcher Dispatcher, workers int, logger *log.Logger) *Adapter {
	if workers < 1 {
		workers = 1
	}
	return &Adapter{
		api:        api,
		dispatcher: dispatcher,
		workers:    workers,
		logger:     logger.WithComponent(log.ComponentTelegram),
	}
}

// LimitWith drops updates from chats that l refuses.
func (a *Adapter) LimitWith(l Limiter) {
	a.limiter = l
}

// Run polls for updates until ctx ends. Each update is handled on its own
// goroutine, at most workers at a time.
func (a *Adapter) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := a.api.GetUpdatesChan(cfg)

	var g errgroup.Group
	g.SetLimit(a.workers)

	a.logger.InfoContext(ctx, "Polling for updates", "workers", a.workers)
	defer g.Wait()
	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			a.logger.InfoContext(ctx, "Stopped polling", log.FieldOperation, log.OpShutdown)
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			g.Go(func() error {
				a.HandleUpdate(ctx, u)
				return nil
			})
		}
	}
}

// HandleUpdate dispatches one update and delivers the replies.
func (a *Adapter) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	ev, chatID, ok := EventFromUpdate(u)
	if !ok {
		return
	}
	ev.CorrelationID = uuid.NewString()
	ctx = log.WithCorrelationID(ctx, ev.CorrelationID)

	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "Panic while handling update",
				log.FieldChatID, ev.Sender.ExternalID, log.FieldError, fmt.Sprint(r))
		}
	}()

	allowed := a.limiter == nil || a.limiter.Allow(ev.Sender.ExternalID)
	if u.CallbackQuery != nil {
		notice := ""
		if !allowed {
			notice = msgSlowDown
		}
		if _, err := a.api.Request(tgbotapi.NewCallback(u.CallbackQuery.ID, notice)); err != nil {
			a.logger.WarnContext(ctx, "Failed to answer callback", log.FieldError, err)
		}
	}
	if !allowed {
		a.logger.WarnContext(ctx, "Update dropped by rate limit", log.FieldChatID, ev.Sender.ExternalID)
		return
	}

	for _, r := range a.dispatcher.Dispatch(ctx, ev) {
		if err := a.send(chatID, r); err != nil {
			a.logger.ErrorContext(ctx, "Failed to send reply",
				log.FieldChatID, ev.Sender.ExternalID, log.FieldOperation, log.OpSend, log.FieldError, err)
		}
	}
}

// EventFromUpdate maps a message or a button press to an event. The chat id
// is the user's external identity.
func EventFromUpdate(u tgbotapi.Update) (form.Event, int64, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		var chatID int64
		if cq.Message != nil && cq.Message.Chat != nil {
			chatID = cq.Message.Chat.ID
		} else if cq.From != nil {
			chatID = cq.From.ID
		} else {
			return form.Event{}, 0, false
		}
		return form.ButtonEvent(sender(chatID, cq.From), cq.Data), chatID, true

	case u.Message != nil && u.Message.Chat != nil:
		m := u.Message
		s := sender(m.Chat.ID, m.From)
		if m.IsCommand() {
			return form.CommandEvent(s, m.Command(), m.CommandArguments()), m.Chat.ID, true
		}
		if strings.TrimSpace(m.Text) == "" {
			return form.Event{}, 0, false
		}
		return form.TextEvent(s, m.Text), m.Chat.ID, true
	}
	return form.Event{}, 0, false
}

func sender(chatID int64, from *tgbotapi.User) form.Sender {
	s := form.Sender{ExternalID: strconv.FormatInt(chatID, 10)}
	if from != nil {
		s.DisplayName = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	return s
}

func (a *Adapter) send(chatID int64, r form.Response) error {
	if r.Document != nil {
		return a.sendDocument(chatID, *r.Document)
	}
	if r.Text == "" {
		return nil
	}
	chunks := SplitText(r.Text, MaxMessageLength)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 && len(r.Choices) > 0 {
			msg.ReplyMarkup = Keyboard(r.Choices)
		}
		if _, err := a.api.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// sendDocument uploads doc and removes it afterwards when it is temporary.
func (a *Adapter) sendDocument(chatID int64, doc form.Document) error {
	if doc.Temporary {
		defer os.Remove(doc.Path)
	}
	f, err := os.Open(doc.Path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	name := doc.Name
	if name == "" {
		name = f.Name()
	}
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: name, Reader: f})
	msg.Caption = doc.Caption
	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// Keyboard renders choice rows as an inline keyboard.
func Keyboard(rows [][]form.Choice) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Token))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

// SplitText cuts s into pieces of at most limit UTF-16 units, preferring
// line breaks.
func SplitText(s string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	var out []string
	for {
		cut := cutIndex(s, limit)
		if cut == len(s) {
			break
		}
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(s)
			cut = size
		}
		if nl := strings.LastIndex(s[:cut], "\n"); nl > 0 {
			cut = nl + 1
		}
		if head := strings.TrimRight(s[:cut], "\n"); head != "" {
			out = append(out, head)
		}
		s = s[cut:]
	}
	if tail := strings.TrimRight(s, "\n"); tail != "" || len(out) == 0 {
		out = append(out, tail)
	}
	return out
}

// cutIndex is the byte offset where s exceeds limit UTF-16 units, or len(s).
func cutIndex(s string, limit int) int {
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		if units+n > limit {
			return i
		}
		units += n
	}
	return len(s)
}
