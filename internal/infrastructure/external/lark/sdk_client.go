package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string

	// ReceiveIDType tells Lark how to read a person ID: user_id, open_id,
	// union_id or email
	ReceiveIDType string
}

// SDKClient wraps the Lark SDK client
type SDKClient struct {
	client *lark.Client
	config Config
	logger *zap.Logger
}

// NewSDKClient creates a new Lark SDK client
func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	if cfg.ReceiveIDType == "" {
		cfg.ReceiveIDType = "user_id"
	}

	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &SDKClient{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// GetClient returns the underlying Lark SDK client
func (c *SDKClient) GetClient() *lark.Client {
	return c.client
}

// ReceiveIDType returns the configured receive_id_type
func (c *SDKClient) ReceiveIDType() string {
	return c.config.ReceiveIDType
}
