package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/kinnect/kinnect-chat/backend/internal/config"
	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
)

// ErrNotConfigured is returned by Unavailable.
var ErrNotConfigured = errors.New("ai backend not configured")

// Service sends session histories to the chat model and returns one reply.
type Service struct {
	cfg    config.AIConfig
	chain  compose.Runnable[[]chat.Message, *schema.Message]
	logger *zap.Logger
}

// NewService creates the Ark chat model described by cfg and wraps it.
func NewService(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg, logger)
}

// NewServiceWithModel 使用已有的聊天模型构建服务，主要用于测试。
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	chain := compose.NewChain[[]chat.Message, *schema.Message]()
	chain.AppendLambda(compose.InvokableLambda(toSchemaMessages))
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		cfg:    cfg,
		chain:  runnable,
		logger: logger.Named("ai"),
	}, nil
}

// StreamingEnabled 指示是否以流式方式读取模型回复。
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Complete runs one backend exchange over the full history.
func (s *Service) Complete(ctx context.Context, history []chat.Message) (chat.Message, error) {
	if len(history) == 0 {
		return chat.Message{}, errors.New("history is empty")
	}

	var (
		response *schema.Message
		err      error
	)
	if s.StreamingEnabled() {
		response, err = s.streamResponse(ctx, history)
	} else {
		response, err = s.chain.Invoke(ctx, history)
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return chat.Message{}, errors.New("model returned no message")
	}

	s.logger.Debug("generated response",
		zap.Int("history", len(history)),
		zap.Int("length", len(response.Content)),
		zap.Bool("stream", s.StreamingEnabled()))

	return chat.Message{Role: chat.RoleAssistant, Content: response.Content}, nil
}

func (s *Service) streamResponse(ctx context.Context, history []chat.Message) (*schema.Message, error) {
	stream, err := s.chain.Stream(ctx, history)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	onDelta, _ := chat.DeltaHandlerFrom(ctx)
	chunks := make([]*schema.Message, 0, 16)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if onDelta != nil && chunk.Content != "" {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return nil, errors.New("model stream ended without output")
	}
	return schema.ConcatMessages(chunks)
}

func toSchemaMessages(_ context.Context, history []chat.Message) ([]*schema.Message, error) {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		case chat.RoleSystem:
			messages = append(messages, schema.SystemMessage(msg.Content))
		default:
			return nil, fmt.Errorf("message %s has unknown role %q", msg.ID, msg.Role)
		}
	}
	return messages, nil
}

// Unavailable stands in for the model when no credentials are configured.
// Every exchange fails, which the session reports like any backend outage.
type Unavailable struct {
	Reason string
}

// Complete always fails.
func (u Unavailable) Complete(context.Context, []chat.Message) (chat.Message, error) {
	if u.Reason == "" {
		return chat.Message{}, ErrNotConfigured
	}
	return chat.Message{}, fmt.Errorf("%w: %s", ErrNotConfigured, u.Reason)
}
