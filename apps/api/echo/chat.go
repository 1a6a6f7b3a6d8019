package echoapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/flow"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	senderUser = "user"
	senderAI   = "ai"

	frameMessage = "message"
	frameTitle   = "title"
	frameError   = "error"
)

type (
	chatApi struct {
		svc      *flow.Service
		upgrader websocket.Upgrader
		logger   core.Logger
	}

	// ChatMessage is one entry of a conversation.
	ChatMessage struct {
		ID        string    `json:"id"`
		Sender    string    `json:"sender"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	}

	// inFrame is what clients send over the websocket.
	inFrame struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}

	// outFrame is what the server sends back: a reply, the conversation title or an error.
	outFrame struct {
		Type    string       `json:"type"`
		Message *ChatMessage `json:"message,omitempty"`
		Title   string       `json:"title,omitempty"`
		Error   string       `json:"error,omitempty"`
	}

	// chatConn is a single websocket conversation. Its messages live only as long as the connection.
	chatConn struct {
		api      *chatApi
		conn     *websocket.Conn
		writeMu  sync.Mutex
		messages []ChatMessage
		titled   bool
	}
)

func registerChatAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	wsAuthed []echo.MiddlewareFunc,
	svc *flow.Service,
	upgrader websocket.Upgrader,
	logger core.Logger,
) {
	api := chatApi{
		svc:      svc,
		upgrader: upgrader,
		logger:   logger,
	}

	g.GET("/chat/ws", api.serveWS, wsAuthed...)

	cg := g.Group("/chat", authed...)
	cg.POST("", flowHandler(svc.GenerateResponse))
	cg.POST("/title", flowHandler(svc.SummarizeChatTitle))
}

func (api *chatApi) serveWS(ctx echo.Context) error {
	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied to the client
		api.logger.Warn("upgrading chat connection", err)
		return nil
	}

	cc := &chatConn{api: api, conn: conn}
	cc.run(ctx.Request().Context())
	return nil
}

// run reads frames until the client goes away. Replies are generated one message at a time.
func (cc *chatConn) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		_ = cc.conn.Close()
	}()

	cc.conn.SetReadLimit(maxMessageSize)
	_ = cc.conn.SetReadDeadline(time.Now().Add(pongWait))
	cc.conn.SetPongHandler(func(string) error {
		return cc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go cc.ping(ctx)

	for {
		var frame inFrame
		if err := cc.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cc.api.logger.Warn("reading chat frame", err)
			}
			return
		}
		if frame.Type != frameMessage || strings.TrimSpace(frame.Text) == "" {
			_ = cc.send(outFrame{Type: frameError, Error: "expected a non-empty message"})
			continue
		}
		if err := cc.handle(ctx, strings.TrimSpace(frame.Text)); err != nil {
			cc.api.logger.Warn("writing chat frame", err)
			return
		}
	}
}

// handle answers one user message, then names the conversation after its first exchange.
func (cc *chatConn) handle(ctx context.Context, text string) error {
	cc.messages = append(cc.messages, newChatMessage(senderUser, text))

	out, err := cc.api.svc.GenerateResponse(ctx, flow.ChatInput{Prompt: text})
	if err != nil {
		return cc.send(outFrame{Type: frameError, Error: chatErrorMessage(err)})
	}
	reply := newChatMessage(senderAI, out.Response)
	cc.messages = append(cc.messages, reply)
	if err = cc.send(outFrame{Type: frameMessage, Message: &reply}); err != nil {
		return err
	}

	if cc.titled {
		return nil
	}
	cc.titled = true
	title, err := cc.api.svc.SummarizeChatTitle(ctx, flow.ChatTitleInput{ConversationSnippet: conversationSnippet(cc.messages)})
	if err != nil {
		// the conversation goes on untitled
		cc.api.logger.Warn("summarizing chat title", err)
		return nil
	}
	return cc.send(outFrame{Type: frameTitle, Title: title.Title})
}

func (cc *chatConn) send(frame outFrame) error {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	_ = cc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return errors.Wrap(cc.conn.WriteJSON(frame), "writing frame")
}

func (cc *chatConn) ping(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cc.writeMu.Lock()
			err := cc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cc.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func newChatMessage(sender, text string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// conversationSnippet renders messages as a transcript, one "User: ..." or "AI: ..." line each.
func conversationSnippet(messages []ChatMessage) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		if msg.Sender == senderAI {
			b.WriteString("AI: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(msg.Text)
	}
	return b.String()
}

func chatErrorMessage(err error) string {
	var ferr *flow.Error
	if errors.As(err, &ferr) {
		return ferr.Message
	}
	return "Sorry, I couldn't process that. Please try again."
}
