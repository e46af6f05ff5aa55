package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/ytakahashi/todo-api/internal/auth"
	"github.com/ytakahashi/todo-api/internal/services"
)

// maxQuickReplyItems is the LINE limit on quick reply buttons per message.
const maxQuickReplyItems = 13

// commandPattern splits "verb rest". LINE users on Japanese keyboards often
// type an ideographic space, so it counts as a separator too.
var commandPattern = regexp.MustCompile(`(?s)^([^\s\x{3000}]+)(?:[\s\x{3000}]+(.*))?$`)

// Replier is the part of the LINE messaging client the webhook needs.
type Replier interface {
	ReplyMessage(replyMessageRequest *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// WebhookHandler lets LINE users drive the same todo store as the HTTP API.
type WebhookHandler struct {
	bot           Replier
	store         services.TodoStore
	channelSecret string
	logger        *log.Logger
}

func NewWebhookHandler(bot Replier, store services.TodoStore, channelSecret string, logger *log.Logger) *WebhookHandler {
	return &WebhookHandler{
		bot:           bot,
		store:         store,
		channelSecret: channelSecret,
		logger:        logger,
	}
}

func getUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	default:
		return ""
	}
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request())
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid LINE signature")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		return fmt.Errorf("parse webhook request: %w", err)
	}

	ctx := c.Request().Context()
	for _, event := range cb.Events {
		switch e := event.(type) {
		case webhook.MessageEvent:
			switch message := e.Message.(type) {
			case webhook.TextMessageContent:
				if err := h.handleTextMessage(ctx, e.ReplyToken, getUserID(e.Source), message.Text); err != nil {
					h.logger.Error("Error handling text message", "err", err)
				}
			}
		case webhook.PostbackEvent:
			if err := h.handlePostback(ctx, e.ReplyToken, getUserID(e.Source), e.Postback.Data); err != nil {
				h.logger.Error("Error handling postback", "err", err)
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleTextMessage(ctx context.Context, replyToken, userID, text string) error {
	if _, err := auth.Authenticate(userID); err != nil {
		return h.replyMessage(replyToken, "Sorry, I could not tell who sent that. Please message me directly.")
	}

	matches := commandPattern.FindStringSubmatch(strings.TrimSpace(text))
	if matches == nil {
		return nil
	}
	verb := strings.ToLower(matches[1])
	arg := strings.TrimSpace(matches[2])
	h.logger.Debug("Received command", "user", userID, "verb", verb)

	switch verb {
	case "add", "todo":
		return h.addTodo(ctx, replyToken, arg)
	case "list", "ls":
		return h.showTodoList(ctx, replyToken, arg)
	case "toggle", "done":
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
		if err != nil {
			return h.replyMessage(replyToken, "Which todo? Example: toggle 3")
		}
		return h.toggleTodo(ctx, replyToken, id)
	case "help":
		return h.showHelp(replyToken)
	}

	// Unrecognized messages get no reply.
	return nil
}

func (h *WebhookHandler) handlePostback(ctx context.Context, replyToken, userID, data string) error {
	if _, err := auth.Authenticate(userID); err != nil {
		return h.replyMessage(replyToken, "Sorry, I could not tell who sent that. Please message me directly.")
	}

	action, value, ok := strings.Cut(data, ":")
	if !ok || action != "toggle" {
		return nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	return h.toggleTodo(ctx, replyToken, id)
}

func (h *WebhookHandler) addTodo(ctx context.Context, replyToken, title string) error {
	if err := ValidateCreateTodo(CreateTodoRequest{Title: title}); err != nil {
		return h.replyMessage(replyToken, "Please give the todo a title.\nExample: add Buy milk")
	}

	todo, err := h.store.Create(ctx, title)
	if err != nil {
		h.logger.Error("Failed to create todo", "err", err)
		return h.replyMessage(replyToken, "Failed to add the todo.")
	}

	return h.replyMessage(replyToken, fmt.Sprintf("✅ Added #%d %s", todo.ID, todo.Title))
}

func (h *WebhookHandler) showTodoList(ctx context.Context, replyToken, search string) error {
	todos, err := h.store.List(ctx, search)
	if err != nil {
		h.logger.Error("Failed to list todos", "err", err)
		return h.replyMessage(replyToken, "Failed to fetch todos.")
	}

	if len(todos) == 0 {
		if search != "" {
			return h.replyMessage(replyToken, fmt.Sprintf("No todos match %q.", search))
		}
		return h.replyMessage(replyToken, "No todos yet.")
	}

	lines := make([]string, 0, len(todos))
	items := make([]messaging_api.QuickReplyItem, 0, maxQuickReplyItems)
	for _, todo := range todos {
		mark := " "
		if todo.Completed {
			mark = "x"
		}
		lines = append(lines, fmt.Sprintf("#%d [%s] %s", todo.ID, mark, todo.Title))

		if len(items) < maxQuickReplyItems {
			label := fmt.Sprintf("Toggle #%d", todo.ID)
			items = append(items, messaging_api.QuickReplyItem{
				Action: &messaging_api.PostbackAction{
					Label:       label,
					Data:        fmt.Sprintf("toggle:%d", todo.ID),
					DisplayText: label,
				},
			})
		}
	}

	message := &messaging_api.TextMessage{
		Text:       fmt.Sprintf("📝 Todos (%d)\n\n%s", len(todos), strings.Join(lines, "\n")),
		QuickReply: &messaging_api.QuickReply{Items: items},
	}
	return h.reply(replyToken, message)
}

func (h *WebhookHandler) toggleTodo(ctx context.Context, replyToken string, id int64) error {
	todo, err := h.store.ToggleCompleted(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		return h.replyMessage(replyToken, fmt.Sprintf("Todo #%d not found.", id))
	}
	if err != nil {
		h.logger.Error("Failed to toggle todo", "id", id, "err", err)
		return h.replyMessage(replyToken, "Failed to update the todo.")
	}

	if todo.Completed {
		return h.replyMessage(replyToken, fmt.Sprintf("🎉 #%d %s is done.", todo.ID, todo.Title))
	}
	return h.replyMessage(replyToken, fmt.Sprintf("↩️ #%d %s is open again.", todo.ID, todo.Title))
}

func (h *WebhookHandler) showHelp(replyToken string) error {
	helpText := `📝 Todo bot

🆕 add <title>
   add Buy milk

📋 list [search]
   list
   list milk

✅ toggle <id>
   toggle 3

❓ help`

	return h.replyMessage(replyToken, helpText)
}

func (h *WebhookHandler) replyMessage(replyToken, text string) error {
	return h.reply(replyToken, &messaging_api.TextMessage{Text: text})
}

func (h *WebhookHandler) reply(replyToken string, message messaging_api.MessageInterface) error {
	_, err := h.bot.ReplyMessage(
		&messaging_api.ReplyMessageRequest{
			ReplyToken: replyToken,
			Messages:   []messaging_api.MessageInterface{message},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to send reply message: %w", err)
	}

	return nil
}
