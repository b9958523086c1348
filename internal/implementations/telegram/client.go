package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var ErrFileTooBig = errors.New("file is too big")

// MAX_DOWNLOAD_SIZE is the Bot API limit for getFile.
const MAX_DOWNLOAD_SIZE = 20 * 1024 * 1024

type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf(
		"got unsuccessful response from Telegram, method %s, status %d: %s",
		e.Method,
		e.StatusCode,
		e.Description,
	)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type sendMessageRequest struct {
	ChatID      int64       `json:"chat_id"`
	Text        string      `json:"text"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
}

type editMessageReplyMarkupRequest struct {
	ChatID      int64                `json:"chat_id"`
	MessageID   int64                `json:"message_id"`
	ReplyMarkup InlineKeyboardMarkup `json:"reply_markup"`
}

type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

type getFileRequest struct {
	FileID string `json:"file_id"`
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// Client is a minimal Telegram Bot API client.
type Client struct {
	httpClient http.Client
	baseURL    url.URL
	token      string
}

func NewClient(baseURL url.URL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: http.Client{Timeout: timeout},
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text, ReplyMarkup: markup}, nil)
}

func (c *Client) EditMessageReplyMarkup(
	ctx context.Context,
	chatID int64,
	messageID int64,
	markup InlineKeyboardMarkup,
) error {
	return c.call(
		ctx,
		"editMessageReplyMarkup",
		editMessageReplyMarkupRequest{ChatID: chatID, MessageID: messageID, ReplyMarkup: markup},
		nil,
	)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, id string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{CallbackQueryID: id}, nil)
}

func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	return c.call(
		ctx,
		"setWebhook",
		setWebhookRequest{URL: webhookURL, AllowedUpdates: []string{"message", "callback_query"}},
		nil,
	)
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, content []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("document", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &body)
	if err != nil {
		return err
	}
	request.Header.Add("content-type", writer.FormDataContentType())
	return c.do(request, "sendDocument", nil)
}

// Download fetches a file the bot has received. Telegram refuses files
// bigger than MAX_DOWNLOAD_SIZE.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	var file File
	if err := c.call(ctx, "getFile", getFileRequest{FileID: fileID}, &file); err != nil {
		return nil, err
	}
	if file.FileSize > MAX_DOWNLOAD_SIZE {
		return nil, ErrFileTooBig
	}

	fileURL := c.baseURL.JoinPath("file", "bot"+c.token, file.FilePath)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Method: "file", StatusCode: resp.StatusCode}
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, MAX_DOWNLOAD_SIZE+1))
	if err != nil {
		return nil, err
	}
	if len(content) > MAX_DOWNLOAD_SIZE {
		return nil, ErrFileTooBig
	}
	return content, nil
}

func (c *Client) methodURL(method string) string {
	return c.baseURL.JoinPath("bot"+c.token, method).String()
}

func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), &body)
	if err != nil {
		return err
	}
	request.Header.Add("content-type", "application/json")
	return c.do(request, method, result)
}

func (c *Client) do(request *http.Request, method string, result interface{}) error {
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Method: method, StatusCode: resp.StatusCode}
		}
		return err
	}
	if resp.StatusCode != http.StatusOK || !decoded.OK {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: decoded.Description}
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(decoded.Result, result)
}
