package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/config"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
)

// TokenProvider 凭证提供方
// 每次分析临时获取一枚令牌，失败必须向上传递，由编排层中止本次分析
type TokenProvider interface {
	Fetch(ctx context.Context) (*model.Credential, error)
}

// ArcGISTokenService ArcGIS 门户令牌服务
type ArcGISTokenService struct {
	portalURL string
	username  string
	password  string
	referer   string
	client    *http.Client
}

// NewArcGISTokenService 创建令牌服务
func NewArcGISTokenService(cfg config.ArcGISConfig) *ArcGISTokenService {
	return &ArcGISTokenService{
		portalURL: strings.TrimRight(cfg.PortalURL, "/"),
		username:  cfg.Username,
		password:  cfg.Password,
		referer:   cfg.Referer,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// arcgisError 服务端错误对象
type arcgisError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *arcgisError) String() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s (%s)", e.Message, strings.Join(e.Details, "; "))
	}
	return e.Message
}

// tokenResponse 令牌接口响应
type tokenResponse struct {
	Token   string       `json:"token"`
	Expires int64        `json:"expires"` // 毫秒时间戳
	Error   *arcgisError `json:"error"`
}

// Fetch 获取访问令牌
// 任何失败都包装为 AuthError 返回，不在此层吞掉
func (s *ArcGISTokenService) Fetch(ctx context.Context) (*model.Credential, error) {
	tokenURL := s.portalURL + "/sharing/rest/generateToken"

	form := url.Values{}
	form.Set("username", s.username)
	form.Set("password", s.password)
	form.Set("client", "referer")
	form.Set("referer", s.referer)
	form.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &model.AuthError{Authority: s.portalURL, Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &model.AuthError{Authority: s.portalURL, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.AuthError{Authority: s.portalURL, Cause: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.AuthError{
			Authority: s.portalURL,
			Cause:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var result tokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &model.AuthError{Authority: s.portalURL, Cause: fmt.Errorf("parse response: %w", err)}
	}
	if result.Error != nil {
		return nil, &model.AuthError{
			Authority: s.portalURL,
			Cause:     fmt.Errorf("portal rejected request: %s", result.Error.String()),
		}
	}
	if result.Token == "" {
		return nil, &model.AuthError{Authority: s.portalURL, Cause: fmt.Errorf("empty token in response")}
	}

	return &model.Credential{
		Token:     result.Token,
		Authority: s.portalURL,
		ExpiresAt: time.UnixMilli(result.Expires),
	}, nil
}
