package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"printdesk-chat/internal/models"
	"printdesk-chat/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, sender, receiver, plaintext string) (models.Message, error) {
	args := m.Called(ctx, sender, receiver, plaintext)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) FindConversation(ctx context.Context, identityA, identityB string) ([]models.Message, error) {
	args := m.Called(ctx, identityA, identityB)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteByID(ctx context.Context, id string) (string, string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MessageRepositoryMock) CountMessages(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
