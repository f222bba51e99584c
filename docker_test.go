package oauthrelay_test

import (
	"os"
	"strings"
	"testing"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// マルチステージビルドの確認: ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージはChromiumの依存ライブラリを含むPlaywrightイメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "mcr.microsoft.com/playwright") {
		t.Errorf("final stage should use the Playwright runtime image, got: %s", lastFrom)
	}
}

func TestDockerfileBinaryAndEntrypoint(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if !strings.Contains(content, "./cmd/oauthrelay") {
		t.Error("Dockerfile should build ./cmd/oauthrelay")
	}
	if !strings.Contains(content, `ENTRYPOINT ["oauthrelay"]`) {
		t.Error("Dockerfile should use oauthrelay as ENTRYPOINT")
	}
	if !strings.Contains(content, "healthcheck") {
		t.Error("Dockerfile should define a HEALTHCHECK using the healthcheck subcommand")
	}
	// 実行時にブラウザをダウンロードしないこと
	if !strings.Contains(content, "BROWSER_INSTALL=false") {
		t.Error("Dockerfile should disable browser installation at runtime")
	}
}

func TestDockerComposeServices(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	for _, svc := range []string{"api:", "migrate:", "db:"} {
		if !strings.Contains(content, svc) {
			t.Errorf("docker-compose.yml should contain service %q", svc)
		}
	}
	if !strings.Contains(content, "postgres:") {
		t.Error("docker-compose.yml should use PostgreSQL image")
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	// DBは外部通信できない内部ネットワークに置くこと
	if !strings.Contains(content, "internal: true") {
		t.Error("docker-compose.yml should define an internal network (internal: true)")
	}
	if !strings.Contains(content, "external") {
		t.Error("docker-compose.yml should define an external network for browser egress")
	}
}

func TestEnvExampleHasRequiredKeys(t *testing.T) {
	content := readFile(t, ".env.example")

	if !strings.Contains(content, "API_KEY=") {
		t.Error(".env.example should document API_KEY")
	}
}
