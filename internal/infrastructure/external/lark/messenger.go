package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// createMessageFunc delivers one message body; the SDK request wraps the body unexported
type createMessageFunc func(ctx context.Context, receiveIDType string, body *larkim.CreateMessageReqBody) (*larkim.CreateMessageResp, error)

// Messenger pushes workflow notifications to Lark chat.
// Implements port.MessageSender.
type Messenger struct {
	create        createMessageFunc
	receiveIDType string
	logger        *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(sdkClient *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		create: func(ctx context.Context, receiveIDType string, body *larkim.CreateMessageReqBody) (*larkim.CreateMessageResp, error) {
			req := larkim.NewCreateMessageReqBuilder().
				ReceiveIdType(receiveIDType).
				Body(body).
				Build()
			return sdkClient.GetClient().Im.Message.Create(ctx, req)
		},
		receiveIDType: sdkClient.receiveIDType,
		logger:        logger,
	}
}

// SendMessage sends a text message to chatID
func (m *Messenger) SendMessage(ctx context.Context, chatID string, content string) error {
	if chatID == "" {
		return fmt.Errorf("chatID cannot be empty")
	}
	if content == "" {
		return fmt.Errorf("content cannot be empty")
	}

	textContent, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	body := larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(chatID).
		MsgType("text").
		Content(string(textContent)).
		Build()

	resp, err := m.create(ctx, m.receiveIDType, body)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", chatID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", chatID))

	return nil
}

var _ port.MessageSender = (*Messenger)(nil)
