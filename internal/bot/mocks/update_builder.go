package mocks

import (
	"github.com/go-telegram/bot/models"
)

// DefaultCallbackID is the callback query id CallbackQueryUpdate uses.
const DefaultCallbackID = "callback-query-id"

// UpdateBuilder assembles Telegram updates for handler tests.
type UpdateBuilder struct {
	update *models.Update
}

// NewUpdateBuilder starts an empty update.
func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: &models.Update{}}
}

func sender(userID int64) *models.User {
	return &models.User{
		ID:        userID,
		FirstName: "Test",
		Username:  "testuser",
	}
}

func privateChat(chatID int64) models.Chat {
	return models.Chat{ID: chatID, Type: "private"}
}

// WithMessage sets a text message from userID in chatID.
func (b *UpdateBuilder) WithMessage(chatID, userID int64, text string) *UpdateBuilder {
	b.update.Message = &models.Message{
		ID:   1,
		Chat: privateChat(chatID),
		From: sender(userID),
		Text: text,
	}
	return b
}

// WithFrom replaces the sender of the message or callback query.
func (b *UpdateBuilder) WithFrom(userID int64, username, firstName, lastName string) *UpdateBuilder {
	user := models.User{
		ID:        userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	if b.update.Message != nil {
		b.update.Message.From = &user
	}
	if b.update.CallbackQuery != nil {
		b.update.CallbackQuery.From = user
	}
	return b
}

// WithCallbackQuery sets a button press on messageID in chatID.
func (b *UpdateBuilder) WithCallbackQuery(callbackID string, chatID, userID int64, messageID int, data string) *UpdateBuilder {
	b.update.CallbackQuery = &models.CallbackQuery{
		ID:   callbackID,
		From: *sender(userID),
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: messageID, Chat: privateChat(chatID)},
		},
		Data: data,
	}
	return b
}

// WithPhoto attaches a photo in two sizes, the way Telegram delivers them.
func (b *UpdateBuilder) WithPhoto(fileID string) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Photo = []models.PhotoSize{
		{FileID: fileID + "_small", FileUniqueID: fileID + "_small_unique", Width: 320, Height: 240},
		{FileID: fileID, FileUniqueID: fileID + "_unique", Width: 1280, Height: 960},
	}
	return b
}

// WithSticker attaches a sticker.
func (b *UpdateBuilder) WithSticker(fileID, emoji string) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Sticker = &models.Sticker{
		FileID:       fileID,
		FileUniqueID: fileID + "_unique",
		Emoji:        emoji,
	}
	return b
}

// WithEditedMessage sets an edited message instead of a new one.
func (b *UpdateBuilder) WithEditedMessage(chatID, userID int64, text string) *UpdateBuilder {
	b.update.EditedMessage = &models.Message{
		ID:   1,
		Chat: privateChat(chatID),
		From: sender(userID),
		Text: text,
	}
	return b
}

// Build returns the assembled update.
func (b *UpdateBuilder) Build() *models.Update {
	return b.update
}

// MessageUpdate is a plain text message.
func MessageUpdate(chatID, userID int64, text string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, text).Build()
}

// CommandUpdate is a message carrying a /command.
func CommandUpdate(chatID, userID int64, command string) *models.Update {
	return MessageUpdate(chatID, userID, command)
}

// CallbackQueryUpdate is an inline button press.
func CallbackQueryUpdate(chatID, userID int64, messageID int, data string) *models.Update {
	return NewUpdateBuilder().
		WithCallbackQuery(DefaultCallbackID, chatID, userID, messageID, data).
		Build()
}

// PhotoUpdate is a photo with no caption.
func PhotoUpdate(chatID, userID int64, fileID string) *models.Update {
	return NewUpdateBuilder().
		WithMessage(chatID, userID, "").
		WithPhoto(fileID).
		Build()
}

// StickerUpdate is a sticker message.
func StickerUpdate(chatID, userID int64, emoji string) *models.Update {
	return NewUpdateBuilder().
		WithMessage(chatID, userID, "").
		WithSticker("sticker", emoji).
		Build()
}
