package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

// KakaoProvider resolves Kakao access tokens through the user-info endpoint.
type KakaoProvider struct {
	userInfoURL string
	httpClient  *http.Client
	logger      logger.Logger
}

type kakaoUserInfo struct {
	ID      int64 `json:"id"`
	Account struct {
		Email string `json:"email"`
	} `json:"kakao_account"`
}

// NewKakaoProvider creates a provider calling userInfoURL with the given timeout.
func NewKakaoProvider(userInfoURL string, timeout time.Duration, log logger.Logger) *KakaoProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KakaoProvider{
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log,
	}
}

// Name returns "kakao".
func (p *KakaoProvider) Name() string { return ProviderKakao }

// Identify exchanges an access token for the Kakao user id.
func (p *KakaoProvider) Identify(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("kakao user info request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Identity{}, fmt.Errorf("%w: kakao rejected access token", ErrInvalidToken)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Identity{}, fmt.Errorf("kakao user info returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info kakaoUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("failed to decode kakao user info: %w", err)
	}
	if info.ID == 0 {
		return Identity{}, fmt.Errorf("%w: kakao user info has no id", ErrInvalidToken)
	}

	p.logger.Debug("kakao token resolved")
	return Identity{
		Provider: ProviderKakao,
		Subject:  strconv.FormatInt(info.ID, 10),
		Email:    info.Account.Email,
	}, nil
}
