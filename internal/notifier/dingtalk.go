package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DingTalkNotifier 钉钉通知器
type DingTalkNotifier struct {
	webhookURL string
	secret     string
	httpClient *http.Client
	now        func() time.Time
}

// DingTalkMessage 钉钉消息结构
type DingTalkMessage struct {
	MsgType  string            `json:"msgtype"`
	Markdown *DingTalkMarkdown `json:"markdown,omitempty"`
	At       *DingTalkAt       `json:"at,omitempty"`
}

type DingTalkMarkdown struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type DingTalkAt struct {
	AtAll bool `json:"isAtAll"`
}

// DingTalkResponse 钉钉API响应
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func NewDingTalkNotifier(webhookURL, secret string) *DingTalkNotifier {
	if secret == "" {
		zap.L().Warn("⚠️ 钉钉通知已配置，但未设置secret（建议配置加签验证）")
	}
	return &DingTalkNotifier{
		webhookURL: webhookURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

func (dtn *DingTalkNotifier) SendText(ctx context.Context, message string) bool {
	if dtn.webhookURL == "" {
		return record("dingtalk", false)
	}
	title := strings.SplitN(message, "\n", 2)[0]
	if err := dtn.sendMarkdown(ctx, title, markdownLines(message)); err != nil {
		zap.L().Error("❌ 钉钉发送失败", zap.Error(err))
		return record("dingtalk", false)
	}
	return record("dingtalk", true)
}

// SendPhoto 钉钉机器人不支持上传本地图片，只发送说明文字
func (dtn *DingTalkNotifier) SendPhoto(ctx context.Context, _ string, caption string) bool {
	if dtn.webhookURL != "" {
		if err := dtn.sendMarkdown(ctx, caption, "🖼 "+caption); err != nil {
			zap.L().Warn("⚠️ 钉钉截图说明发送失败", zap.Error(err))
		}
	}
	return record("dingtalk", false)
}

// markdownLines 钉钉markdown需要行尾两个空格才换行
func markdownLines(message string) string {
	return strings.ReplaceAll(message, "\n", "  \n")
}

// generateSignature 生成钉钉加签
func (dtn *DingTalkNotifier) generateSignature(timestamp int64) string {
	// 按照文档要求: timestamp + "\n" + secret
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, dtn.secret)

	h := hmac.New(sha256.New, []byte(dtn.secret))
	h.Write([]byte(stringToSign))
	return url.QueryEscape(base64.StdEncoding.EncodeToString(h.Sum(nil)))
}

// buildSignedURL 构建带签名的URL
func (dtn *DingTalkNotifier) buildSignedURL() string {
	if dtn.secret == "" {
		return dtn.webhookURL
	}
	timestamp := dtn.now().UnixMilli()

	separator := "&"
	if !strings.Contains(dtn.webhookURL, "?") {
		separator = "?"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s",
		dtn.webhookURL, separator, timestamp, dtn.generateSignature(timestamp))
}

// sendMarkdown 发送钉钉消息
func (dtn *DingTalkNotifier) sendMarkdown(ctx context.Context, title, content string) error {
	message := &DingTalkMessage{
		MsgType:  "markdown",
		Markdown: &DingTalkMarkdown{Title: title, Text: content},
		At:       &DingTalkAt{AtAll: false},
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dtn.buildSignedURL(), bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dtn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	var dingResp DingTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&dingResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if dingResp.ErrCode != 0 {
		return fmt.Errorf("钉钉API错误 [%d]: %s", dingResp.ErrCode, dingResp.ErrMsg)
	}
	return nil
}
