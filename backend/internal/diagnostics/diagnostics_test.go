package diagnostics

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"termssh/backend/internal/settings"
	"termssh/backend/internal/sshmanager"
)

var quietLogger = log.New(io.Discard, "", 0)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// TestCollect 测试收集配置相关的诊断信息
func TestCollect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	writeFile(t, path, "Host web\n  HostName 10.0.0.5\n  Compression sometimes\n\nHost db\n")
	m := sshmanager.NewManager(path, quietLogger)

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := Collect(context.Background(), Options{
		Settings: settings.Settings{
			SSHPath:       "termssh-missing-ssh-binary",
			DefaultColors: map[string]any{"foreground": "#fff"},
			HostColors:    map[string]any{"web": map[string]any{}, "db": map[string]any{}},
		},
		Manager:        m,
		ListenAddr:     "127.0.0.1:45678",
		ActiveSessions: 2,
		Now:            func() time.Time { return fixed },
	})

	if r.Time != "2025-01-02T03:04:05Z" {
		t.Errorf("unexpected time %q", r.Time)
	}
	if r.SSHError == "" || r.SSHPath != "" {
		t.Errorf("missing binary should be reported, got %+v", r)
	}
	if !r.ConfigFound || r.HostCount != 2 {
		t.Errorf("expected config with 2 hosts, got found=%t hosts=%d", r.ConfigFound, r.HostCount)
	}
	if len(r.Issues) != 1 || r.Issues[0].Line != 3 {
		t.Errorf("expected one issue on line 3, got %+v", r.Issues)
	}
	if r.DefaultColors != `{"foreground":"#fff"}` || r.HostColorCount != 2 {
		t.Errorf("unexpected color info %q %d", r.DefaultColors, r.HostColorCount)
	}

	text := r.String()
	for _, want := range []string{"termssh-missing-ssh-binary", path, "hosts: 2", "line 3:", "sessions: 2", "hostColors: 2 entries"} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q:\n%s", want, text)
		}
	}
}

// TestCollect_TargetKeyTypes 测试查询目标主机在 known_hosts 中的密钥类型
func TestCollect_TargetKeyTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	writeFile(t, path, "Host web\n  HostName web.example.com\n")

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "known_hosts"), "web.example.com "+string(ssh.MarshalAuthorizedKey(sshPub)))

	m := sshmanager.NewManager(path, quietLogger)
	r := Collect(context.Background(), Options{
		Settings: settings.Settings{SSHPath: "termssh-missing-ssh-binary"},
		Manager:  m,
		Target:   "web",
	})
	if len(r.TargetKeyTypes) != 1 || r.TargetKeyTypes[0] != ssh.KeyAlgoED25519 {
		t.Errorf("expected ed25519 key type, got %v", r.TargetKeyTypes)
	}

	r = Collect(context.Background(), Options{
		Settings: settings.Settings{SSHPath: "termssh-missing-ssh-binary"},
		Manager:  m,
		Target:   "root@unknown.example.com",
	})
	if len(r.TargetKeyTypes) != 0 || !strings.Contains(r.String(), "known key types: (none)") {
		t.Errorf("unknown host should have no key types, got %v", r.TargetKeyTypes)
	}
}

// TestCollect_NoConfig 测试没有配置文件时的报告
func TestCollect_NoConfig(t *testing.T) {
	r := Collect(context.Background(), Options{
		Settings: settings.Settings{
			SSHPath:       "termssh-missing-ssh-binary",
			SSHConfigPath: filepath.Join(t.TempDir(), "missing"),
		},
	})

	if r.ConfigFound || r.HostCount != 0 || len(r.Issues) != 0 {
		t.Errorf("unexpected report %+v", r)
	}
	if r.DefaultColors != "null" {
		t.Errorf("unset default colors should be null, got %q", r.DefaultColors)
	}
	if !strings.Contains(r.String(), "found: false") {
		t.Errorf("report should mention missing config:\n%s", r.String())
	}
}
