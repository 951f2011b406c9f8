package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/sirupsen/logrus"
)

// Message is one inbound chat message, reduced to the fields the
// assistant cares about.
type Message struct {
	ChatID     string
	MsgID      string
	SenderID   string
	Text       string
	Raw        string // unparsed content payload
	ChatType   string // p2p, group
	CreateTime time.Time
}

// MessageHandler is the callback for received messages.
type MessageHandler func(msg *Message)

// Client connects to Feishu over WebSocket for inbound messages and
// uses the REST API for outbound ones.
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	log       *logrus.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new Feishu client. The REST client is built
// here so SendText works before, and concurrently with, Start.
func NewClient(appID, appSecret string, log *logrus.Logger) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		log:       log,
	}
}

// OnMessage sets the message handler.
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects the WebSocket and blocks until Stop is called or the
// connection fails.
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	// The dispatcher callback must return quickly so the SDK can ACK;
	// otherwise Feishu redelivers on timeout.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelWarn),
	)

	c.log.Info("feishu websocket connecting")
	return c.wsCli.Start(c.ctx)
}

// Stop closes the WebSocket connection.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil || c.onMessage == nil {
		return
	}

	// Drop the bot's own messages to avoid reply loops.
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}
	if rawMsg.ChatId == nil || rawMsg.MessageId == nil {
		return
	}

	msg := &Message{
		ChatID: *rawMsg.ChatId,
		MsgID:  *rawMsg.MessageId,
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}
	if rawMsg.CreateTime != nil {
		// Milliseconds Unix timestamp as a string.
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			msg.CreateTime = time.UnixMilli(ts)
		}
	}
	if event.Event.Sender != nil && event.Event.Sender.SenderId != nil &&
		event.Event.Sender.SenderId.OpenId != nil {
		msg.SenderID = *event.Event.Sender.SenderId.OpenId
	}

	// Only plain text messages reach the assistant.
	if rawMsg.MessageType == nil || *rawMsg.MessageType != "text" || rawMsg.Content == nil {
		c.log.WithFields(logrus.Fields{
			"chat_id": msg.ChatID,
			"msg_id":  msg.MsgID,
		}).Debug("ignoring non-text message")
		return
	}
	msg.Raw = *rawMsg.Content
	msg.Text = parseTextContent(msg.Raw)
	if msg.Text == "" {
		return
	}

	c.onMessage(msg)
}

// parseTextContent extracts the text field from a message content
// payload like {"text":"hello"}.
func parseTextContent(content string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return parsed.Text
}

// SendText sends a text message to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}
