// Package chattest provides a testify mock of chat.Client.
package chattest

import (
	"context"

	"syslog-relay/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
	Channel string
}

func (m *MockClient) PostMessage(ctx context.Context, msg model.ChatMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MockClient) UploadFile(ctx context.Context, path, title string) (string, error) {
	args := m.Called(ctx, path, title)
	return args.String(0), args.Error(1)
}

func (m *MockClient) SharePublicURL(ctx context.Context, fileID string) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

func (m *MockClient) ChannelID() string {
	return m.Channel
}
