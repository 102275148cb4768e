package telegram

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"thirdcoast.systems/reelgrab/internal/dispatch"
	"thirdcoast.systems/reelgrab/internal/i18n"
)

const setLanguagePrefix = "set_lang_"

// Accounts is the user store behind /start and the language picker.
type Accounts interface {
	Language(ctx context.Context, userID int64) (i18n.Lang, error)
	SetLanguage(ctx context.Context, userID int64, lang i18n.Lang) error
	Register(ctx context.Context, userID int64) (bool, error)
	RecordActivity(ctx context.Context, userID int64) error
}

type route int

const (
	routeIgnore route = iota
	routeStart
	routeLanguage
	routeSubmit
	routeRecheck
	routeSetLanguage
)

// Handlers turns Telegram updates into dispatcher calls. Every update runs
// on its own goroutine so a slow membership check never stalls polling.
type Handlers struct {
	dispatcher *dispatch.Dispatcher
	accounts   Accounts
	transport  *Transport

	wg sync.WaitGroup
}

func NewHandlers(dispatcher *dispatch.Dispatcher, accounts Accounts, transport *Transport) *Handlers {
	return &Handlers{dispatcher: dispatcher, accounts: accounts, transport: transport}
}

// Default is the bot's default handler.
func (h *Handlers) Default(ctx context.Context, _ *bot.Bot, update *models.Update) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("update handler panicked", "update_id", update.ID, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		h.Handle(ctx, update)
	}()
}

// Wait blocks until every running update handler has returned.
func (h *Handlers) Wait() {
	h.wg.Wait()
}

// Handle processes one update synchronously.
func (h *Handlers) Handle(ctx context.Context, update *models.Update) {
	switch classify(update) {
	case routeStart:
		h.start(ctx, messageOrigin(update.Message))
	case routeLanguage:
		origin := messageOrigin(update.Message)
		origin.MessageID = 0
		h.showPicker(ctx, origin)
	case routeSubmit:
		msg := update.Message
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		res := h.dispatcher.HandleSubmission(ctx, dispatch.Submission{Origin: messageOrigin(msg), Text: text})
		slog.Debug("submission handled", "user_id", msg.From.ID, "result", res)
	case routeRecheck:
		cq := update.CallbackQuery
		defer h.answer(ctx, cq)
		origin, prompt := callbackOrigin(cq)
		res := h.dispatcher.HandleRecheck(ctx, dispatch.Recheck{Origin: origin, Prompt: prompt})
		slog.Debug("recheck handled", "user_id", cq.From.ID, "result", res)
	case routeSetLanguage:
		cq := update.CallbackQuery
		defer h.answer(ctx, cq)
		h.setLanguage(ctx, cq)
	}
}

func classify(update *models.Update) route {
	if update == nil {
		return routeIgnore
	}
	if cq := update.CallbackQuery; cq != nil {
		switch {
		case cq.Data == dispatch.RecheckAction:
			return routeRecheck
		case strings.HasPrefix(cq.Data, setLanguagePrefix):
			return routeSetLanguage
		}
		return routeIgnore
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return routeIgnore
	}
	switch command(msg.Text) {
	case "start":
		return routeStart
	case "lang":
		return routeLanguage
	}
	return routeSubmit
}

// command returns the bot command of text without its slash or @botname
// suffix, or "" if text is not a command.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func messageOrigin(msg *models.Message) dispatch.Origin {
	return dispatch.Origin{ChatID: msg.Chat.ID, UserID: msg.From.ID, MessageID: msg.ID}
}

// callbackOrigin answers into the chat of the pressed message. The prompt
// handle is zero when Telegram no longer exposes that message.
func callbackOrigin(cq *models.CallbackQuery) (dispatch.Origin, dispatch.Handle) {
	origin := dispatch.Origin{ChatID: cq.From.ID, UserID: cq.From.ID}
	var prompt dispatch.Handle
	if msg := cq.Message.Message; msg != nil {
		origin.ChatID = msg.Chat.ID
		prompt = dispatch.Handle{ChatID: msg.Chat.ID, MessageID: msg.ID}
	}
	return origin, prompt
}

func (h *Handlers) start(ctx context.Context, origin dispatch.Origin) {
	created, err := h.accounts.Register(ctx, origin.UserID)
	if err != nil {
		slog.Warn("failed to register user", "user_id", origin.UserID, "error", err)
	}
	if created {
		h.showPicker(ctx, origin)
		return
	}

	if err := h.accounts.RecordActivity(ctx, origin.UserID); err != nil {
		slog.Warn("failed to record activity", "user_id", origin.UserID, "error", err)
	}
	h.notify(ctx, origin, i18n.T(h.language(ctx, origin.UserID), i18n.Welcome))
}

func (h *Handlers) showPicker(ctx context.Context, origin dispatch.Origin) {
	langs := i18n.Supported()
	actions := make([]dispatch.Action, 0, len(langs))
	for _, l := range langs {
		actions = append(actions, dispatch.Action{Text: i18n.LanguageNames[l], Data: setLanguagePrefix + string(l)})
	}
	if _, err := h.transport.Notify(ctx, origin, i18n.T(i18n.Default, i18n.ChooseLanguage), actions...); err != nil {
		slog.Warn("failed to send language picker", "chat_id", origin.ChatID, "error", err)
	}
}

func (h *Handlers) setLanguage(ctx context.Context, cq *models.CallbackQuery) {
	lang := i18n.Lang(strings.TrimPrefix(cq.Data, setLanguagePrefix))
	if !lang.Valid() {
		return
	}
	if err := h.accounts.SetLanguage(ctx, cq.From.ID, lang); err != nil {
		slog.Error("failed to save language", "user_id", cq.From.ID, "error", err)
		return
	}

	origin, prompt := callbackOrigin(cq)
	if !prompt.IsZero() {
		if err := h.transport.Delete(ctx, prompt); err != nil {
			slog.Debug("failed to delete language picker", "error", err)
		}
	}
	h.notify(ctx, origin, i18n.T(lang, i18n.LanguageChanged))
}

func (h *Handlers) answer(ctx context.Context, cq *models.CallbackQuery) {
	if err := h.transport.AnswerCallback(ctx, cq.ID); err != nil {
		slog.Debug("failed to answer callback", "error", err)
	}
}

func (h *Handlers) notify(ctx context.Context, origin dispatch.Origin, text string) {
	if _, err := h.transport.Notify(ctx, origin, text); err != nil {
		slog.Warn("failed to send message", "chat_id", origin.ChatID, "error", err)
	}
}

func (h *Handlers) language(ctx context.Context, userID int64) i18n.Lang {
	lang, err := h.accounts.Language(ctx, userID)
	if err != nil {
		slog.Warn("failed to load language", "user_id", userID, "error", err)
		return i18n.Default
	}
	return lang
}

// RegisterCommands publishes the command menu.
func (h *Handlers) RegisterCommands(ctx context.Context) error {
	return h.transport.SetCommands(ctx, map[string]string{
		"lang": i18n.T(i18n.Default, i18n.CommandLanguage),
	})
}
