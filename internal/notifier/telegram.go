package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	telegramTextTimeout  = 10 * time.Second
	telegramPhotoTimeout = 20 * time.Second
)

// TelegramNotifier Telegram机器人通知器
type TelegramNotifier struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramNotifier 创建Telegram通知器，baseURL为空时使用官方地址
func NewTelegramNotifier(baseURL, token, chatID string) *TelegramNotifier {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if token == "" || chatID == "" {
		zap.L().Warn("⚠️ 未配置Telegram token或chat_id，消息将不会发送")
	}
	return &TelegramNotifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{},
	}
}

func (tn *TelegramNotifier) configured() bool {
	return tn.token != "" && tn.chatID != ""
}

func (tn *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", tn.baseURL, tn.token, method)
}

// SendText 发送HTML格式文本消息
func (tn *TelegramNotifier) SendText(ctx context.Context, message string) bool {
	if !tn.configured() {
		return record("telegram", false)
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    tn.chatID,
		"text":       message,
		"parse_mode": "HTML",
	})
	if err != nil {
		zap.L().Error("❌ 序列化Telegram消息失败", zap.Error(err))
		return record("telegram", false)
	}

	ctx, cancel := context.WithTimeout(ctx, telegramTextTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tn.endpoint("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		zap.L().Error("❌ 创建Telegram请求失败", zap.Error(err))
		return record("telegram", false)
	}
	req.Header.Set("Content-Type", "application/json")

	ok := tn.do(req, "sendMessage")
	return record("telegram", ok)
}

// SendPhoto 上传图片，文件不存在时返回false
func (tn *TelegramNotifier) SendPhoto(ctx context.Context, file, caption string) bool {
	if !tn.configured() {
		return record("telegram", false)
	}

	f, err := os.Open(file)
	if err != nil {
		zap.L().Warn("⚠️ 截图文件不存在", zap.String("file", file), zap.Error(err))
		return record("telegram", false)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("chat_id", tn.chatID)
	_ = w.WriteField("caption", caption)
	part, err := w.CreateFormFile("photo", filepath.Base(file))
	if err == nil {
		_, err = io.Copy(part, f)
	}
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		zap.L().Error("❌ 构建图片上传请求失败", zap.Error(err))
		return record("telegram", false)
	}

	ctx, cancel := context.WithTimeout(ctx, telegramPhotoTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tn.endpoint("sendPhoto"), &body)
	if err != nil {
		zap.L().Error("❌ 创建Telegram请求失败", zap.Error(err))
		return record("telegram", false)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	ok := tn.do(req, "sendPhoto")
	return record("telegram", ok)
}

func (tn *TelegramNotifier) do(req *http.Request, method string) bool {
	resp, err := tn.httpClient.Do(req)
	if err != nil {
		zap.L().Error("❌ Telegram请求失败", zap.String("method", method), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	var tgResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tgResp); err != nil {
		zap.L().Error("❌ 解析Telegram响应失败", zap.String("method", method), zap.Int("status", resp.StatusCode), zap.Error(err))
		return false
	}
	if !tgResp.OK {
		zap.L().Warn("⚠️ Telegram返回失败",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("description", tgResp.Description))
		return false
	}
	return true
}
