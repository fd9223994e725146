package service

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ImportResultPayload 导入完成通知载荷
type ImportResultPayload struct {
	Event        string    `json:"event"`
	Total        int       `json:"total"`
	SuccessCount int       `json:"success_count"`
	FailedCount  int       `json:"failed_count"`
	FinishedAt   time.Time `json:"finished_at"`
}

// WebhookClient 导入结果外推客户端
// 通知失败只记日志，不影响导入结果本身
type WebhookClient struct {
	httpClient *resty.Client
	webhookURL string
	logger     *zap.Logger
}

// NewWebhookClient 创建webhook客户端；未配置URL时返回nil（调用方判空跳过）
func NewWebhookClient(webhookURL string, logger *zap.Logger) *WebhookClient {
	if webhookURL == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookClient{
		httpClient: client,
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// NotifyImportResult 推送导入结果摘要
func (c *WebhookClient) NotifyImportResult(total, successCount, failedCount int) {
	payload := ImportResultPayload{
		Event:        "people.import.finished",
		Total:        total,
		SuccessCount: successCount,
		FailedCount:  failedCount,
		FinishedAt:   time.Now(),
	}

	resp, err := c.httpClient.R().
		SetBody(payload).
		Post(c.webhookURL)
	if err != nil {
		c.logger.Warn("failed to notify import webhook", zap.Error(err))
		return
	}
	if resp.StatusCode() >= 300 {
		c.logger.Warn("import webhook returned non-2xx",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return
	}
	c.logger.Info("import webhook notified", zap.Int("status", resp.StatusCode()))
}
