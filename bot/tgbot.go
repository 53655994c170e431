package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"Relay/core"
	"Relay/holder"
	"Relay/lib/sl"
	"Relay/metrics"
	"Relay/relay"
)

const typingInterval = 5 * time.Second

// botAPI is the part of tgbotapi.BotAPI the bot relies on.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) (tgbotapi.UpdatesChannel, error)
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	AnswerCallbackQuery(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Accumulator interface {
	Accumulate(ctx context.Context, event relay.Event) (holder.Usage, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, action core.Action) (string, error)
}

type TgBot struct {
	api         botAPI
	log         *slog.Logger
	accumulator Accumulator
	dispatcher  Dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	done     chan struct{}
	mutex    sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBotAPI(conf.TelegramApiKey)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram: %w", err)
	}
	log.With(slog.String("username", api.Self.UserName)).Info("telegram authorized")
	return newTgBot(api, log), nil
}

func newTgBot(api botAPI, log *slog.Logger) *TgBot {
	ctx, cancel := context.WithCancel(context.Background())
	return &TgBot{
		api:    api,
		log:    log.With(sl.Module("tgbot")),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// SetServices wires the context handlers; the document loader needs the bot
// as its FileLocator, so they are created after the bot.
func (t *TgBot) SetServices(accumulator Accumulator, dispatcher Dispatcher) {
	t.accumulator = accumulator
	t.dispatcher = dispatcher
}

// FileURL implements core.FileLocator.
func (t *TgBot) FileURL(fileId string) (string, error) {
	return t.api.GetFileDirectURL(fileId)
}

// Start receives updates until Stop is called. Every update is handled
// on its own goroutine.
func (t *TgBot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("getting updates: %w", err)
	}

	for {
		select {
		case <-t.done:
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if !t.track() {
				return nil
			}
			go func() {
				defer t.wg.Done()
				t.handleUpdate(update)
			}()
		}
	}
}

// track registers a handler unless the bot is stopping.
func (t *TgBot) track() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.stopping {
		return false
	}
	t.wg.Add(1)
	return true
}

// Stop ends the update loop and waits for running handlers until ctx
// expires, then cancels them.
func (t *TgBot) Stop(ctx context.Context) {
	t.mutex.Lock()
	if !t.stopping {
		t.stopping = true
		t.api.StopReceivingUpdates()
		close(t.done)
	}
	t.mutex.Unlock()

	finished := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		t.log.Warn("handlers still running, cancelling")
		t.cancel()
		<-finished
	}
	t.cancel()
}

func (t *TgBot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Failures.WithLabelValues("panic").Inc()
			t.log.With(
				slog.Int("update", update.UpdateID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			).Error("update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		t.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		t.handleMessage(update.Message)
	}
}

func (t *TgBot) handleMessage(incoming *tgbotapi.Message) {
	if incoming.From == nil || incoming.Chat == nil {
		return
	}
	chatId := incoming.Chat.ID
	userId := int64(incoming.From.ID)

	if incoming.IsCommand() {
		switch incoming.Command() {
		case "start", "help":
			t.plainResponse(chatId, helpText)
			return
		case "clear":
			t.runAction(chatId, core.Action{Kind: core.ActionClear, UserId: userId})
			return
		}
	}

	event, ok := toEvent(incoming)
	if !ok {
		return
	}
	metrics.Events.WithLabelValues(event.Kind()).Inc()
	t.log.With(
		sl.User(userId),
		slog.String("from", incoming.From.UserName),
		slog.String("kind", event.Kind()),
		sl.Clip("text", event.Text+event.Caption),
	).Info("incoming message")

	usage, err := t.accumulator.Accumulate(t.ctx, event)
	if err != nil {
		if errors.Is(err, core.ErrFileNotSupported) {
			metrics.Failures.WithLabelValues("decode").Inc()
			t.log.With(sl.User(userId)).Warn("unsupported file", sl.Err(err))
			t.plainResponse(chatId, notSupportedText)
			return
		}
		metrics.Failures.WithLabelValues("accumulate").Inc()
		t.log.With(sl.User(userId)).Error("accumulating context", sl.Err(err))
		return
	}
	metrics.ContextTokens.Observe(float64(usage.Tokens))

	msg := tgbotapi.NewMessage(chatId, usage.String())
	msg.ReplyMarkup = ActionMenu(userId)
	t.send(msg)
}

// toEvent keeps text messages, replies and documents; anything else
// (photos, stickers, service messages) is ignored.
func toEvent(incoming *tgbotapi.Message) (relay.Event, bool) {
	event := relay.Event{
		UserId:  int64(incoming.From.ID),
		Text:    incoming.Text,
		Caption: incoming.Caption,
	}
	if incoming.Document != nil {
		event.Document = toDocument(incoming.Document)
		return event, true
	}
	if reply := incoming.ReplyToMessage; reply != nil {
		event.ReplyText = reply.Text
		if reply.Document != nil {
			event.ReplyDocument = toDocument(reply.Document)
		}
	}
	if event.Text == "" && event.ReplyText == "" && event.ReplyDocument == nil {
		return event, false
	}
	return event, true
}

func toDocument(doc *tgbotapi.Document) *relay.Document {
	return &relay.Document{
		FileId:   doc.FileID,
		FileName: doc.FileName,
		MimeType: doc.MimeType,
	}
}

func (t *TgBot) handleCallback(query *tgbotapi.CallbackQuery) {
	defer t.answerCallback(query.ID)

	var chatId int64
	switch {
	case query.Message != nil && query.Message.Chat != nil:
		chatId = query.Message.Chat.ID
	case query.From != nil:
		chatId = int64(query.From.ID)
	default:
		t.log.With(slog.String("data", query.Data)).Warn("callback without chat")
		return
	}

	action, err := core.DecodeAction(query.Data)
	if err != nil {
		metrics.Failures.WithLabelValues("callback").Inc()
		t.log.With(slog.String("data", query.Data)).Error("decoding callback", sl.Err(err))
		return
	}
	t.runAction(chatId, action)
}

func (t *TgBot) runAction(chatId int64, action core.Action) {
	metrics.Actions.WithLabelValues(action.Kind.String()).Inc()
	log := t.log.With(sl.User(action.UserId), slog.String("action", action.Kind.String()))
	log.Info("action requested")

	var reply string
	var err error
	if action.Kind == core.ActionSend {
		reply, err = t.withTyping(chatId, func() (string, error) {
			return t.dispatcher.Dispatch(t.ctx, action)
		})
	} else {
		reply, err = t.dispatcher.Dispatch(t.ctx, action)
	}
	if err != nil {
		metrics.Failures.WithLabelValues("action").Inc()
		log.Error("running action", sl.Err(err))
		reply = errorResponse
	}
	t.plainResponse(chatId, reply)
}

// withTyping shows the typing indicator while fn runs.
func (t *TgBot) withTyping(chatId int64, fn func() (string, error)) (string, error) {
	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			t.sendChatAction(chatId, tgbotapi.ChatTyping)
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()

	reply, err := fn()
	close(stop)
	<-stopped
	return reply, err
}

func (t *TgBot) sendChatAction(chatId int64, action string) {
	if _, err := t.api.Send(tgbotapi.NewChatAction(chatId, action)); err != nil {
		t.log.Warn("sending chat action", sl.Err(err))
	}
}

func (t *TgBot) answerCallback(id string) {
	if _, err := t.api.AnswerCallbackQuery(tgbotapi.NewCallback(id, "")); err != nil {
		t.log.Warn("answering callback", sl.Err(err))
	}
}

// plainResponse delivers text in as many messages as needed.
func (t *TgBot) plainResponse(chatId int64, text string) {
	for _, chunk := range Chunks(text) {
		t.send(tgbotapi.NewMessage(chatId, chunk))
	}
}

func (t *TgBot) send(msg tgbotapi.MessageConfig) {
	if _, err := t.api.Send(msg); err != nil {
		t.log.With(slog.Int64("chat", msg.ChatID)).Error("sending message", sl.Err(err))
	}
}
