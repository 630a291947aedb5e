package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/google/uuid"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// MessageCreator is the part of the IM message resource the notifier uses
type MessageCreator interface {
	Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error)
}

// Notifier sends escalation notices as Lark text messages
type Notifier struct {
	messages      MessageCreator
	receiveIDType string
	logger        *zap.Logger
}

// NewNotifier creates a notifier backed by the SDK client's IM service
func NewNotifier(sdkClient *SDKClient, logger *zap.Logger) *Notifier {
	return NewNotifierWithCreator(sdkClient.GetClient().Im.Message, sdkClient.ReceiveIDType(), logger)
}

// NewNotifierWithCreator creates a notifier around any MessageCreator
func NewNotifierWithCreator(messages MessageCreator, receiveIDType string, logger *zap.Logger) *Notifier {
	if receiveIDType == "" {
		receiveIDType = "user_id"
	}
	return &Notifier{
		messages:      messages,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// Notify sends message to personID
func (n *Notifier) Notify(ctx context.Context, personID string, message string) error {
	if personID == "" {
		return fmt.Errorf("personID cannot be empty")
	}
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	body, err := textMessageBody(personID, message)
	if err != nil {
		return err
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(n.receiveIDType).
		Body(body).
		Build()

	resp, err := n.messages.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("receive_id", personID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("receive_id", personID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	n.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("receive_id", personID))

	return nil
}

// textMessageBody builds a plain text message. The uuid makes a retried
// send idempotent on the Lark side.
func textMessageBody(personID, message string) (*larkIm.CreateMessageReqBody, error) {
	content, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message content: %w", err)
	}

	return larkIm.NewCreateMessageReqBodyBuilder().
		ReceiveId(personID).
		MsgType("text").
		Content(string(content)).
		Uuid(uuid.NewString()).
		Build(), nil
}

var _ port.Notifier = (*Notifier)(nil)
