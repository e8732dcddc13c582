package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"termssh/backend/internal/types"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type fixture struct {
	dir      string
	config   string
	settings string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		config:   filepath.Join(dir, "config"),
		settings: filepath.Join(dir, "settings.yaml"),
	}
	config := "Host web\n  HostName 10.0.0.5\n  User deploy\n\nHost db\n  HostName db.internal\n"
	settings := "sshConfigPath: " + f.config + "\n" +
		"defaultColors:\n  foreground: \"#eeeeee\"\n" +
		"hostColors:\n  10.0.0.5:\n    background: \"#002b36\"\n"
	for path, content := range map[string]string{f.config: config, f.settings: settings} {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

// TestHostsCmd 测试列出主机
func TestHostsCmd(t *testing.T) {
	f := newFixture(t)

	out, err := runCLI(t, "--settings", f.settings, "hosts")
	if err != nil {
		t.Fatalf("hosts failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "web") || !strings.HasSuffix(lines[0], "deploy@10.0.0.5") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = runCLI(t, "--settings", f.settings, "hosts", "--json")
	if err != nil {
		t.Fatalf("hosts --json failed: %v", err)
	}
	var hosts []types.SSHHost
	if err := json.Unmarshal([]byte(out), &hosts); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if len(hosts) != 2 || hosts[1].Alias != "db" || hosts[1].DisplayAddress != "db.internal" {
		t.Errorf("unexpected hosts %+v", hosts)
	}
}

// TestHostsCmd_ConfigNotFound 测试配置文件不存在时报错
func TestHostsCmd_ConfigNotFound(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope")
	_, err := runCLI(t, "--settings", filepath.Join(dir, "settings.json"), "--ssh-config", missing, "hosts")

	var nf *types.ConfigNotFoundError
	if !errors.As(err, &nf) || nf.Path != missing {
		t.Errorf("expected ConfigNotFoundError for %s, got %v", missing, err)
	}
}

// TestColorsCmd 测试配色解析
func TestColorsCmd(t *testing.T) {
	f := newFixture(t)

	out, err := runCLI(t, "--settings", f.settings, "colors", "-c", "web")
	if err != nil {
		t.Fatalf("colors failed: %v", err)
	}
	var result struct {
		Colors     types.TerminalColors `json:"colors"`
		Candidates []string             `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	want := types.TerminalColors{Foreground: "#eeeeee", Background: "#002b36"}
	if result.Colors != want {
		t.Errorf("colors = %+v, want %+v", result.Colors, want)
	}
	if strings.Join(result.Candidates, ",") != "web,10.0.0.5,deploy@10.0.0.5" {
		t.Errorf("unexpected candidates %v", result.Candidates)
	}

	out, err = runCLI(t, "--settings", f.settings, "colors", "someone@elsewhere")
	if err != nil {
		t.Fatalf("colors failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatal(err)
	}
	if result.Colors != (types.TerminalColors{Foreground: "#eeeeee", Background: "#1e1e1e"}) {
		t.Errorf("unmatched target should use defaults, got %+v", result.Colors)
	}
}

// TestArgsCmd 测试打印 ssh 命令行
func TestArgsCmd(t *testing.T) {
	f := newFixture(t)
	key := filepath.Join(f.dir, "id_ed25519")

	out, err := runCLI(t, "--settings", f.settings, "--ssh", "/opt/ssh", "args", "-c", "web", "-i", key)
	if err != nil {
		t.Fatalf("args failed: %v", err)
	}
	want := "/opt/ssh -tt -o StrictHostKeyChecking=no -F " + f.config + " -i " + key + " -o IdentitiesOnly=yes web"
	if strings.TrimSpace(out) != want {
		t.Errorf("args output:\n%s\nwant:\n%s", out, want)
	}

	out, err = runCLI(t, "--settings", f.settings, "args", "root@1.2.3.4")
	if err != nil {
		t.Fatalf("args failed: %v", err)
	}
	if strings.TrimSpace(out) != "ssh -tt -o StrictHostKeyChecking=no root@1.2.3.4" {
		t.Errorf("unexpected output %q", out)
	}
}

// TestDiagnoseCmd 测试诊断输出
func TestDiagnoseCmd(t *testing.T) {
	f := newFixture(t)

	out, err := runCLI(t, "--settings", f.settings, "--ssh", "termssh-missing-ssh-binary", "diagnose")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	for _, want := range []string{"ssh: termssh-missing-ssh-binary (error:", "found: true, hosts: 2", "settings: " + f.settings} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnose output missing %q:\n%s", want, out)
		}
	}
}
