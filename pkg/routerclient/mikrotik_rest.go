package routerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RESTConfig configures the alternate transport, RouterOS's own REST API
// (available on v7+ at /rest).
type RESTConfig struct {
	BaseURL        string // e.g. https://192.0.2.1
	User           string
	Password       string
	CommandTimeout time.Duration
}

// RESTClient drives the same command surface as SSHClient over
// RouterOS's REST API instead of its CLI.
type RESTClient struct {
	cfg    RESTConfig
	client *http.Client
}

// NewRESTClient returns a RESTClient with a timeout-bound http.Client.
func NewRESTClient(cfg RESTConfig) *RESTClient {
	return &RESTClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.CommandTimeout},
	}
}

func (c *RESTClient) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("router rest api %s %s: status %d: %s", method, path, resp.StatusCode, string(out))
	}
	return out, nil
}

type queueTreeItem struct {
	ID       string `json:".id"`
	Name     string `json:"name"`
	MaxLimit string `json:"max-limit"`
	Packets  string `json:"packets"`
	Bytes    string `json:"bytes"`
	Dropped  string `json:"dropped"`
	QPackets string `json:"queued-packets"`
	QBytes   string `json:"queued-bytes"`
}

func (c *RESTClient) findQueueTree(ctx context.Context, queueName string) (queueTreeItem, error) {
	out, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rest/queue/tree?name=%s", queueName), nil)
	if err != nil {
		return queueTreeItem{}, err
	}
	var items []queueTreeItem
	if err := json.Unmarshal(out, &items); err != nil {
		return queueTreeItem{}, err
	}
	if len(items) == 0 {
		return queueTreeItem{}, fmt.Errorf("queue %q not found", queueName)
	}
	return items[0], nil
}

func (c *RESTClient) SetMaxLimit(ctx context.Context, queueName string, bps uint64) error {
	item, err := c.findQueueTree(ctx, queueName)
	if err != nil {
		return wrapCommandErr("set_max_limit", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/rest/queue/tree/"+item.ID, map[string]string{
		"max-limit": fmt.Sprintf("%d", bps),
	})
	return wrapCommandErr("set_max_limit", err)
}

func (c *RESTClient) GetMaxLimit(ctx context.Context, queueName string) (uint64, error) {
	item, err := c.findQueueTree(ctx, queueName)
	if err != nil {
		return 0, wrapCommandErr("get_max_limit", err)
	}
	return parseUintString(item.MaxLimit), nil
}

func (c *RESTClient) GetQueueStats(ctx context.Context, queueName string) (QueueStats, error) {
	item, err := c.findQueueTree(ctx, queueName)
	if err != nil {
		return QueueStats{}, wrapCommandErr("get_queue_stats", err)
	}
	return QueueStats{
		Packets:       parseUintString(item.Packets),
		Bytes:         parseUintString(item.Bytes),
		Dropped:       parseUintString(item.Dropped),
		QueuedPackets: parseUintString(item.QPackets),
		QueuedBytes:   parseUintString(item.QBytes),
	}, nil
}

func parseUintString(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

func (c *RESTClient) ResetQueueCounters(ctx context.Context, queueName string) error {
	item, err := c.findQueueTree(ctx, queueName)
	if err != nil {
		return wrapCommandErr("reset_queue_counters", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/rest/queue/tree/reset-counters", map[string]string{".id": item.ID})
	return wrapCommandErr("reset_queue_counters", err)
}

type mangleRule struct {
	ID       string `json:".id"`
	Comment  string `json:"comment"`
	Disabled string `json:"disabled"`
}

func (c *RESTClient) findMangleRule(ctx context.Context, comment string) (mangleRule, error) {
	out, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rest/ip/firewall/mangle?comment=%s", comment), nil)
	if err != nil {
		return mangleRule{}, err
	}
	var rules []mangleRule
	if err := json.Unmarshal(out, &rules); err != nil {
		return mangleRule{}, err
	}
	if len(rules) == 0 {
		return mangleRule{}, fmt.Errorf("mangle rule with comment %q not found", comment)
	}
	return rules[0], nil
}

func (c *RESTClient) EnableRule(ctx context.Context, comment string) error {
	rule, err := c.findMangleRule(ctx, comment)
	if err != nil {
		return wrapCommandErr("enable_rule", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/rest/ip/firewall/mangle/"+rule.ID, map[string]string{"disabled": "false"})
	return wrapCommandErr("enable_rule", err)
}

func (c *RESTClient) DisableRule(ctx context.Context, comment string) error {
	rule, err := c.findMangleRule(ctx, comment)
	if err != nil {
		return wrapCommandErr("disable_rule", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/rest/ip/firewall/mangle/"+rule.ID, map[string]string{"disabled": "true"})
	return wrapCommandErr("disable_rule", err)
}

func (c *RESTClient) IsRuleEnabled(ctx context.Context, comment string) (bool, error) {
	rule, err := c.findMangleRule(ctx, comment)
	if err != nil {
		return false, wrapCommandErr("is_rule_enabled", err)
	}
	return rule.Disabled != "true", nil
}

func (c *RESTClient) TestConnection(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/rest/system/identity", nil)
	return wrapCommandErr("test_connection", err)
}

func (c *RESTClient) Close() error {
	return nil
}
