// Package telegram connects the dispatcher to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"thirdcoast.systems/reelgrab/internal/admission"
	"thirdcoast.systems/reelgrab/internal/dispatch"
)

// Transport implements the dispatcher's Notifier and Deliverer and the
// admission gate's MembershipChecker on top of a bot client.
type Transport struct {
	b *bot.Bot
}

func NewTransport(b *bot.Bot) *Transport {
	return &Transport{b: b}
}

func replyTo(origin dispatch.Origin) *models.ReplyParameters {
	if origin.MessageID == 0 {
		return nil
	}
	return &models.ReplyParameters{MessageID: origin.MessageID, AllowSendingWithoutReply: true}
}

func keyboard(actions []dispatch.Action) models.ReplyMarkup {
	if len(actions) == 0 {
		return nil
	}
	row := make([]models.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		row = append(row, models.InlineKeyboardButton{Text: a.Text, CallbackData: a.Data})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// Notify replies to the origin message with text and an optional row of
// inline buttons.
func (t *Transport) Notify(ctx context.Context, origin dispatch.Origin, text string, actions ...dispatch.Action) (dispatch.Handle, error) {
	msg, err := t.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          origin.ChatID,
		Text:            text,
		ReplyParameters: replyTo(origin),
		ReplyMarkup:     keyboard(actions),
	})
	if err != nil {
		return dispatch.Handle{}, fmt.Errorf("send message: %w", err)
	}
	return dispatch.Handle{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

func (t *Transport) Delete(ctx context.Context, h dispatch.Handle) error {
	if _, err := t.b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: h.ChatID, MessageID: h.MessageID}); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// ClearActions removes the inline keyboard from a sent message.
func (t *Transport) ClearActions(ctx context.Context, h dispatch.Handle) error {
	_, err := t.b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      h.ChatID,
		MessageID:   h.MessageID,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}},
	})
	if err != nil {
		return fmt.Errorf("edit reply markup: %w", err)
	}
	return nil
}

// DeliverByReference lets Telegram fetch the video from directURL itself.
// Any refusal is reported as dispatch.ErrRejected.
func (t *Transport) DeliverByReference(ctx context.Context, origin dispatch.Origin, directURL, caption string) error {
	if directURL == "" {
		return dispatch.ErrRejected
	}
	_, err := t.b.SendVideo(ctx, &bot.SendVideoParams{
		ChatID:            origin.ChatID,
		Video:             &models.InputFileString{Data: directURL},
		Caption:           caption,
		SupportsStreaming: true,
		ReplyParameters:   replyTo(origin),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", dispatch.ErrRejected, err)
	}
	return nil
}

// DeliverFile uploads a local video file.
func (t *Transport) DeliverFile(ctx context.Context, origin dispatch.Origin, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	_, err = t.b.SendVideo(ctx, &bot.SendVideoParams{
		ChatID:            origin.ChatID,
		Video:             &models.InputFileUpload{Filename: filepath.Base(path), Data: f},
		Caption:           caption,
		SupportsStreaming: true,
		ReplyParameters:   replyTo(origin),
	})
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}
	return nil
}

// CheckMembership reports whether userID is a member of channel, which may
// be an @username or a numeric chat id.
func (t *Transport) CheckMembership(ctx context.Context, userID int64, channel string) (admission.Membership, error) {
	member, err := t.b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: channel, UserID: userID})
	if err != nil {
		return admission.NotMember, fmt.Errorf("get chat member: %w", err)
	}
	return membershipOf(member), nil
}

func membershipOf(member *models.ChatMember) admission.Membership {
	if member == nil {
		return admission.NotMember
	}
	switch member.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
		return admission.Member
	default:
		return admission.NotMember
	}
}

// SendText sends a plain message to chatID.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string) error {
	if _, err := t.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (t *Transport) AnswerCallback(ctx context.Context, callbackID string) error {
	if _, err := t.b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID}); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// SetCommands publishes the bot's command menu.
func (t *Transport) SetCommands(ctx context.Context, commands map[string]string) error {
	list := make([]models.BotCommand, 0, len(commands))
	for cmd, desc := range commands {
		list = append(list, models.BotCommand{Command: cmd, Description: desc})
	}
	if _, err := t.b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: list}); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}
