// Package snapshot 从流媒体服务获取关键帧图片
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiStatKeyFrame = "/api/stat/key_frame"

// successCode 服务端在 200 下返回 json 时，非该值视为错误
const successCode = 10000

type Config struct {
	URL     string
	Timeout time.Duration
}

type Engine struct {
	cfg Config
	cli *http.Client
}

func NewEngine() Engine {
	return Engine{
		cli: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        30,
				MaxIdleConnsPerHost: 30,
				MaxConnsPerHost:     100,
			},
		},
	}
}

func (e Engine) SetConfig(cfg Config) Engine {
	e.cfg = cfg
	if cfg.Timeout > 0 {
		cli := *e.cli
		cli.Timeout = cfg.Timeout
		e.cli = &cli
	}
	return e
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// GetKeyFrameImage 获取流的关键帧图片
//
//	engine := snapshot.NewEngine().SetConfig(snapshot.Config{URL: "http://localhost:8080"})
//	b, err := engine.GetKeyFrameImage(ctx, "live/game")
func (e Engine) GetKeyFrameImage(ctx context.Context, streamName string) ([]byte, error) {
	if streamName == "" {
		return nil, fmt.Errorf("snapshot: stream_name is required")
	}
	u := fmt.Sprintf("%s%s?stream_name=%s&type=image", strings.TrimRight(e.cfg.URL, "/"), apiStatKeyFrame, url.QueryEscape(streamName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create request failed: %w", err)
	}
	resp, err := e.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read response failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// 服务端可能在 200 状态码下返回 json 错误
		if strings.Contains(resp.Header.Get("Content-Type"), "application/json") || isJSONResponse(body) {
			var errResp errorResponse
			if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != 0 && errResp.Code != successCode {
				return nil, fmt.Errorf("snapshot: %s", errResp.Msg)
			}
		}
		return body, nil
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("snapshot: keyframe is being generated, please try again later")
	case http.StatusNotFound:
		return nil, fmt.Errorf("snapshot: stream not found: %s", streamName)
	default:
		return nil, fmt.Errorf("snapshot: unexpected status code %d: %s", resp.StatusCode, string(body))
	}
}

// GetImage 获取并解码关键帧，支持 png/jpeg
func (e Engine) GetImage(ctx context.Context, streamName string) (image.Image, error) {
	b, err := e.GetKeyFrameImage(ctx, streamName)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode image: %w", err)
	}
	return img, nil
}

func isJSONResponse(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	return body[0] == '{' || body[0] == '['
}
