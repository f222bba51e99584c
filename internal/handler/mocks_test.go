package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/oauthrelay/internal/model"
)

// --- モック定義 ---

// mockLoginService はLoginServiceInterfaceのモック実装。
type mockLoginService struct {
	loginFn      func(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error)
	openManualFn func(ctx context.Context) (*model.ManualLoginResult, error)
}

func (m *mockLoginService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLoginService) OpenManual(ctx context.Context) (*model.ManualLoginResult, error) {
	if m.openManualFn != nil {
		return m.openManualFn(ctx)
	}
	return nil, errors.New("not implemented")
}

// mockAuthorizeService はAuthorizeServiceInterfaceのモック実装。
type mockAuthorizeService struct {
	authorizeFn func(ctx context.Context, oauthURL string) (*model.AuthorizationResult, error)
}

func (m *mockAuthorizeService) Authorize(ctx context.Context, oauthURL string) (*model.AuthorizationResult, error) {
	if m.authorizeFn != nil {
		return m.authorizeFn(ctx, oauthURL)
	}
	return nil, errors.New("not implemented")
}

// mockURLGuard はsecurity.URLGuardのモック実装。
type mockURLGuard struct {
	validateURLFn func(rawURL string) error
}

func (m *mockURLGuard) ValidateURL(rawURL string) error {
	if m.validateURLFn != nil {
		return m.validateURLFn(rawURL)
	}
	return nil
}

func (m *mockURLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// mockStatusReporter はStatusReporterInterfaceのモック実装。
type mockStatusReporter struct {
	reportFn func() model.SessionStatus
}

func (m *mockStatusReporter) Report() model.SessionStatus {
	if m.reportFn != nil {
		return m.reportFn()
	}
	return model.SessionStatus{}
}

// mockUpstreamProber はUpstreamProberInterfaceのモック実装。
type mockUpstreamProber struct {
	probeFn func(ctx context.Context) model.UpstreamProbe
}

func (m *mockUpstreamProber) Probe(ctx context.Context) model.UpstreamProbe {
	if m.probeFn != nil {
		return m.probeFn(ctx)
	}
	return model.UpstreamProbe{}
}

// mockAttemptLister はAttemptListerInterfaceのモック実装。
type mockAttemptLister struct {
	listRecentFn func(ctx context.Context, limit int) ([]*model.AttemptRecord, error)
}

func (m *mockAttemptLister) ListRecent(ctx context.Context, limit int) ([]*model.AttemptRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
