package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const pushPlusEndpoint = "http://www.pushplus.plus/send"

// PushPlusNotifier PushPlus通知器
type PushPlusNotifier struct {
	endpoint   string
	userToken  string
	to         string // 好友令牌，多人用逗号分隔
	httpClient *http.Client
}

type PushPlusRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
	To       string `json:"to,omitempty"`
}

type PushPlusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func NewPushPlusNotifier(userToken, to string) *PushPlusNotifier {
	return &PushPlusNotifier{
		endpoint:   pushPlusEndpoint,
		userToken:  userToken,
		to:         to,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (ppn *PushPlusNotifier) SendText(ctx context.Context, message string) bool {
	if ppn.userToken == "" {
		return record("pushplus", false)
	}
	title := strings.SplitN(message, "\n", 2)[0]
	content := strings.ReplaceAll(html.EscapeString(message), "\n", "<br/>")
	if err := ppn.send(ctx, title, content); err != nil {
		zap.L().Error("❌ PushPlus发送失败", zap.Error(err))
		return record("pushplus", false)
	}
	return record("pushplus", true)
}

// SendPhoto PushPlus不支持图片上传
func (ppn *PushPlusNotifier) SendPhoto(context.Context, string, string) bool {
	return record("pushplus", false)
}

func (ppn *PushPlusNotifier) send(ctx context.Context, title, content string) error {
	jsonData, err := json.Marshal(PushPlusRequest{
		Token:    ppn.userToken,
		Title:    title,
		Content:  content,
		Template: "html",
		To:       ppn.to,
	})
	if err != nil {
		return fmt.Errorf("序列化请求数据失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ppn.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ppn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	var pushResp PushPlusResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if pushResp.Code != 200 {
		return fmt.Errorf("PushPlus API错误: %s", pushResp.Msg)
	}
	return nil
}
