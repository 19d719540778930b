// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

var _ schemas.LLMClient = (*MockLLMClient)(nil)

func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Session Mock --

// MockSession mocks schemas.Session and therefore schemas.Page.
type MockSession struct {
	mock.Mock
}

var _ schemas.Session = (*MockSession)(nil)

func NewMockSession() *MockSession {
	return &MockSession{}
}

func (m *MockSession) ID() string { return m.Called().String(0) }

func (m *MockSession) Close(ctx context.Context) { m.Called(ctx) }

func (m *MockSession) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSession) HTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSession) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSession) BodyText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSession) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	return m.Called(ctx, selector, timeout).Error(0)
}

func (m *MockSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return m.Called(ctx, selector, timeout).Error(0)
}

func (m *MockSession) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockSession) Fill(ctx context.Context, selector, value string) error {
	return m.Called(ctx, selector, value).Error(0)
}

func (m *MockSession) SelectOption(ctx context.Context, selector, value string) error {
	return m.Called(ctx, selector, value).Error(0)
}

func (m *MockSession) SubmitForm(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockSession) TextContent(ctx context.Context, selector string) (string, bool, error) {
	args := m.Called(ctx, selector)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSession) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockSession) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1)
}

func (m *MockSession) Metadata(ctx context.Context) (schemas.SessionMetadata, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.SessionMetadata), args.Error(1)
}

// -- Session Opener Mock --

// MockSessionOpener mocks schemas.SessionOpener.
type MockSessionOpener struct {
	mock.Mock
}

var _ schemas.SessionOpener = (*MockSessionOpener)(nil)

func (m *MockSessionOpener) Open(ctx context.Context, req schemas.RunRequest) (schemas.Session, error) {
	args := m.Called(ctx, req)
	var s schemas.Session
	if v := args.Get(0); v != nil {
		s = v.(schemas.Session)
	}
	return s, args.Error(1)
}
