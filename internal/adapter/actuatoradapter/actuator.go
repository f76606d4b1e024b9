// Package actuatoradapter 将轨道按键转换为实际输入
package actuatoradapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/automation"
)

const (
	KindLog  = "log"
	KindHTTP = "http"
)

var (
	_ automation.Actuator = (*Log)(nil)
	_ automation.Actuator = (*HTTP)(nil)
)

// New 按配置创建按键执行器
func New(bc *conf.Bootstrap) (automation.Actuator, error) {
	keys, err := NewKeymap(bc.Game.Lanes, bc.Game.Keys)
	if err != nil {
		return nil, err
	}
	switch bc.Actuator.Kind {
	case KindLog, "":
		return NewLog(keys), nil
	case KindHTTP:
		return NewHTTP(bc.Actuator.URL, bc.Actuator.Timeout.Duration(), keys)
	default:
		return nil, fmt.Errorf("unknown actuator kind %q", bc.Actuator.Kind)
	}
}

// Keymap 轨道序号到按键名
type Keymap []string

func NewKeymap(lanes int, keys []string) (Keymap, error) {
	if len(keys) == 0 {
		keys = make([]string, lanes)
		for i := range keys {
			keys[i] = fmt.Sprintf("lane%d", i)
		}
	}
	if len(keys) != lanes {
		return nil, fmt.Errorf("keymap has %d keys, want %d", len(keys), lanes)
	}
	return Keymap(keys), nil
}

// Keys 越界的轨道返回错误
func (k Keymap) Keys(lanes []int) ([]string, error) {
	out := make([]string, 0, len(lanes))
	for _, l := range lanes {
		if l < 0 || l >= len(k) {
			return nil, fmt.Errorf("lane %d out of range [0,%d)", l, len(k))
		}
		out = append(out, k[l])
	}
	return out, nil
}

// Log 只记录日志，按住时长内阻塞，用于演练
type Log struct {
	keys Keymap
	log  *slog.Logger
}

func NewLog(keys Keymap) *Log {
	return &Log{keys: keys, log: slog.With("component", "actuator")}
}

func (a *Log) Press(ctx context.Context, lanes []int, hold time.Duration) error {
	keys, err := a.keys.Keys(lanes)
	if err != nil {
		return err
	}
	a.log.DebugContext(ctx, "press", "keys", keys, "hold", hold)
	t := time.NewTimer(hold)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HTTP 将按键请求转发给输入代理
type HTTP struct {
	url  string
	keys Keymap
	cli  *http.Client
}

type pressRequest struct {
	Keys   []string `json:"keys"`
	Lanes  []int    `json:"lanes"`
	HoldMs int64    `json:"hold_ms"`
}

func NewHTTP(url string, timeout time.Duration, keys Keymap) (*HTTP, error) {
	if url == "" {
		return nil, fmt.Errorf("actuator.url is required for http actuator")
	}
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	return &HTTP{
		url:  url,
		keys: keys,
		cli: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
			},
		},
	}, nil
}

func (a *HTTP) Press(ctx context.Context, lanes []int, hold time.Duration) error {
	keys, err := a.keys.Keys(lanes)
	if err != nil {
		return err
	}
	body, _ := json.Marshal(pressRequest{Keys: keys, Lanes: lanes, HoldMs: hold.Milliseconds()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.cli.Do(req)
	if err != nil {
		return fmt.Errorf("press %v: %w", keys, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("press %v: status %d: %s", keys, resp.StatusCode, string(b))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
