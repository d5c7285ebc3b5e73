package routerclient

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig configures the primary RouterOS transport.
type SSHConfig struct {
	Host           string
	User           string
	KeyPath        string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// SSHClient issues RouterOS CLI commands over an SSH session, one
// session per command — RouterOS's CLI is not designed for a persistent
// interactive shell driven programmatically.
type SSHClient struct {
	cfg    SSHConfig
	client *ssh.Client
}

// DialSSH connects and authenticates, returning a ready SSHClient.
func DialSSH(cfg SSHConfig) (*SSHClient, error) {
	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading ssh key %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh key %s: %w", cfg.KeyPath, err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.ConnectTimeout,
	}

	addr := cfg.Host + ":22"
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return &SSHClient{cfg: cfg, client: client}, nil
}

func (c *SSHClient) runCommand(ctx context.Context, command string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return string(r.out), r.err
	case <-ctx.Done():
		session.Close()
		return "", ctx.Err()
	}
}

var (
	maxLimitRe   = regexp.MustCompile(`max-limit=(\d+)`)
	packetsRe    = regexp.MustCompile(`packets=(\d+)`)
	bytesRe      = regexp.MustCompile(`bytes=(\d+)`)
	droppedRe    = regexp.MustCompile(`dropped=(\d+)`)
	queuedPktsRe = regexp.MustCompile(`queued-packets=(\d+)`)
	queuedBytRe  = regexp.MustCompile(`queued-bytes=(\d+)`)
)

func (c *SSHClient) SetMaxLimit(ctx context.Context, queueName string, bps uint64) error {
	cmd := fmt.Sprintf(`/queue/tree/set [find name="%s"] max-limit=%d`, queueName, bps)
	_, err := c.runCommand(ctx, cmd)
	return wrapCommandErr(cmd, err)
}

func (c *SSHClient) GetMaxLimit(ctx context.Context, queueName string) (uint64, error) {
	cmd := fmt.Sprintf(`/queue/tree/print detail where name="%s"`, queueName)
	out, err := c.runCommand(ctx, cmd)
	if err != nil {
		return 0, wrapCommandErr(cmd, err)
	}
	m := maxLimitRe.FindStringSubmatch(out)
	if m == nil {
		return 0, wrapCommandErr(cmd, fmt.Errorf("max-limit not found in output"))
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	return v, err
}

func (c *SSHClient) GetQueueStats(ctx context.Context, queueName string) (QueueStats, error) {
	cmd := fmt.Sprintf(`/queue/tree/print stats detail where name="%s"`, queueName)
	out, err := c.runCommand(ctx, cmd)
	if err != nil {
		return QueueStats{}, wrapCommandErr(cmd, err)
	}
	return QueueStats{
		Packets:       parseUintMatch(packetsRe, out),
		Bytes:         parseUintMatch(bytesRe, out),
		Dropped:       parseUintMatch(droppedRe, out),
		QueuedPackets: parseUintMatch(queuedPktsRe, out),
		QueuedBytes:   parseUintMatch(queuedBytRe, out),
	}, nil
}

func parseUintMatch(re *regexp.Regexp, s string) uint64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, _ := strconv.ParseUint(m[1], 10, 64)
	return v
}

func (c *SSHClient) ResetQueueCounters(ctx context.Context, queueName string) error {
	cmd := fmt.Sprintf(`/queue/tree/reset-counters [find name="%s"]`, queueName)
	_, err := c.runCommand(ctx, cmd)
	return wrapCommandErr(cmd, err)
}

func (c *SSHClient) EnableRule(ctx context.Context, comment string) error {
	cmd := fmt.Sprintf(`/ip/firewall/mangle/enable [find comment="%s"]`, comment)
	_, err := c.runCommand(ctx, cmd)
	return wrapCommandErr(cmd, err)
}

func (c *SSHClient) DisableRule(ctx context.Context, comment string) error {
	cmd := fmt.Sprintf(`/ip/firewall/mangle/disable [find comment="%s"]`, comment)
	_, err := c.runCommand(ctx, cmd)
	return wrapCommandErr(cmd, err)
}

func (c *SSHClient) IsRuleEnabled(ctx context.Context, comment string) (bool, error) {
	cmd := fmt.Sprintf(`/ip/firewall/mangle/print where comment="%s"`, comment)
	out, err := c.runCommand(ctx, cmd)
	if err != nil {
		return false, wrapCommandErr(cmd, err)
	}
	firstLine := strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	return !strings.Contains(firstLine, "X"), nil
}

func (c *SSHClient) TestConnection(ctx context.Context) error {
	_, err := c.runCommand(ctx, `/system/identity/print`)
	return wrapCommandErr("test_connection", err)
}

func (c *SSHClient) Close() error {
	return c.client.Close()
}
