package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/config"
	"github.com/dgnsrekt/charsync/internal/subscription"
	"github.com/dgnsrekt/charsync/internal/synchronizer"
)

// Notifier is the interface for sending synchronization notifications.
type Notifier interface {
	SendSyncReport(ctx context.Context, summary *synchronizer.Summary, duration time.Duration) error
	SendSubscriptionHalted(ctx context.Context, state subscription.State, cause error) error
}

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     config.NotifyConfig
	logger     *zap.Logger
}

// NewClient creates a new ntfy client. Empty priorities fall back to
// default, high and urgent.
func NewClient(cfg config.NotifyConfig, logger *zap.Logger) *Client {
	cfg.Priority = orDefault(cfg.Priority, "default")
	cfg.FailurePriority = orDefault(cfg.FailurePriority, "high")
	cfg.HaltPriority = orDefault(cfg.HaltPriority, "urgent")
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config: cfg,
		logger: logger,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// SendSyncReport sends a run summary. Runs with failed entities use the
// failure priority.
func (c *Client) SendSyncReport(ctx context.Context, summary *synchronizer.Summary, duration time.Duration) error {
	if !c.config.Enabled {
		return nil
	}

	message := FormatSyncMessage(summary, duration)
	if summary.Failed == 0 {
		title := fmt.Sprintf("Sync Complete: %s", summary.Game)
		return c.send(ctx, title, message, c.config.Tags+",white_check_mark", c.config.Priority)
	}

	title := fmt.Sprintf("Sync Partially Failed: %s (%d/%d)", summary.Game, summary.Failed, summary.Total)
	return c.send(ctx, title, message, c.config.Tags+",warning", c.config.FailurePriority)
}

// SendSubscriptionHalted alerts that a subscription stopped at a failing event.
func (c *Client) SendSubscriptionHalted(ctx context.Context, state subscription.State, cause error) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Subscription Halted: %s", state.Name)
	return c.send(ctx, title, FormatHaltMessage(state, cause), c.config.Tags+",x", c.config.HaltPriority)
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is a no-op implementation for when notifications are disabled.
type NoopNotifier struct{}

func (n *NoopNotifier) SendSyncReport(_ context.Context, _ *synchronizer.Summary, _ time.Duration) error {
	return nil
}

func (n *NoopNotifier) SendSubscriptionHalted(_ context.Context, _ subscription.State, _ error) error {
	return nil
}

// New creates the appropriate notifier based on config.
func New(cfg config.NotifyConfig, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
