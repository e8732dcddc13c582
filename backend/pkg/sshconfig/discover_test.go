package sshconfig

import (
	"errors"
	"testing"
)

// TestDiscoverHosts_Structured 测试结构化解析，Host * 中的参数按出现顺序先到先得
func TestDiscoverHosts_Structured(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []HostEntry
	}{
		{
			name: "Host * 在前",
			text: `Host *
    User global

Host web
    HostName 192.168.1.10

Host db
    HostName db.example.com
    User admin
`,
			want: []HostEntry{
				{Alias: "web", DisplayAddress: "global@192.168.1.10"},
				{Alias: "db", DisplayAddress: "global@db.example.com"},
			},
		},
		{
			name: "Host * 在后",
			text: `Host web
    HostName 192.168.1.10

Host db
    HostName db.example.com
    User admin

Host *
    User global
`,
			want: []HostEntry{
				{Alias: "web", DisplayAddress: "global@192.168.1.10"},
				{Alias: "db", DisplayAddress: "admin@db.example.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := DiscoverHosts(tt.text)
			if err != nil {
				t.Fatalf("DiscoverHosts failed: %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d: %+v", len(tt.want), len(entries), entries)
			}
			for i := range tt.want {
				if entries[i] != tt.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, entries[i], tt.want[i])
				}
			}
		})
	}
}

// TestDiscoverHosts_FirstWins 测试同名 Host 只保留第一个
func TestDiscoverHosts_FirstWins(t *testing.T) {
	text := `Host foo
    HostName first.example.com

Host foo
    HostName second.example.com
`
	entries, err := DiscoverHosts(text)
	if err != nil {
		t.Fatalf("DiscoverHosts failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].DisplayAddress != "first.example.com" {
		t.Errorf("expected first block to win, got %q", entries[0].DisplayAddress)
	}
}

// TestDiscoverHosts_SkipsPatterns 测试通配符和否定模式不会作为主机出现
func TestDiscoverHosts_SkipsPatterns(t *testing.T) {
	text := `Host web !bastion *.internal db?
    HostName 10.0.0.1
`
	entries, err := DiscoverHosts(text)
	if err != nil {
		t.Fatalf("DiscoverHosts failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Alias != "web" {
		t.Fatalf("expected only web, got %+v", entries)
	}
}

// TestDiscoverHosts_AliasWithoutHostName 测试没有 HostName 时使用别名本身
func TestDiscoverHosts_AliasWithoutHostName(t *testing.T) {
	entries, err := DiscoverHosts("Host plain\n    Port 2222\n")
	if err != nil {
		t.Fatalf("DiscoverHosts failed: %v", err)
	}
	if len(entries) != 1 || entries[0].DisplayAddress != "plain" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

// TestDiscoverHosts_FallbackOnMatch 测试结构化解析失败时退回逐行扫描
func TestDiscoverHosts_FallbackOnMatch(t *testing.T) {
	text := `Host web
    HostName 10.0.0.1
    User deploy
    User other

Match host *.internal
    User bob

Host db db2 *.prod
    HostName db.example.com  # primary
Host web
    HostName ignored.example.com
`
	entries, err := DiscoverHosts(text)
	if err != nil {
		t.Fatalf("fallback should succeed, got error: %v", err)
	}

	want := []HostEntry{
		{Alias: "web", DisplayAddress: "deploy@10.0.0.1"},
		{Alias: "db", DisplayAddress: "db.example.com"},
		{Alias: "db2", DisplayAddress: "db.example.com"},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

// TestDiscoverHosts_ParseFailure 测试两种解析都得不到主机时返回空切片和错误
func TestDiscoverHosts_ParseFailure(t *testing.T) {
	entries, err := DiscoverHosts("Match all\n    User nobody\n")
	if entries == nil {
		t.Fatal("entries should be an empty slice, not nil")
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Op != "parse" {
		t.Errorf("expected parse ConfigError, got %v", err)
	}
}

// TestDiscoverHosts_Empty 测试空配置
func TestDiscoverHosts_Empty(t *testing.T) {
	entries, err := DiscoverHosts("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", entries)
	}
}

// TestScanLines 测试逐行扫描的细节规则
func TestScanLines(t *testing.T) {
	text := "User root\r\nHostName before-any-host\r\n\r\nhost alpha beta\r\n  hostname a.example.com\r\n  HostName b.example.com\r\nHost *\r\n  User star\r\nHost gamma\r\n  User g\r\n"
	entries := scanLines(text)

	want := []HostEntry{
		{Alias: "alpha", DisplayAddress: "a.example.com"},
		{Alias: "beta", DisplayAddress: "a.example.com"},
		{Alias: "gamma", DisplayAddress: "g@gamma"},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

// TestComputeEffective 测试计算别名的有效参数
func TestComputeEffective(t *testing.T) {
	text := `Host omni-sakura
    HostName 49.212.130.181
    User ubuntu
`
	eff, err := ComputeEffective(text, "omni-sakura")
	if err != nil {
		t.Fatalf("ComputeEffective failed: %v", err)
	}
	if eff.HostName != "49.212.130.181" || eff.User != "ubuntu" {
		t.Errorf("unexpected effective params: %+v", eff)
	}

	eff, err = ComputeEffective(text, "unknown")
	if err != nil {
		t.Fatalf("ComputeEffective failed: %v", err)
	}
	if eff.HostName != "" || eff.User != "" {
		t.Errorf("unknown alias should have no params, got %+v", eff)
	}
}

// TestComputeEffective_Fallback 测试结构化解析失败时使用逐行扫描的值
func TestComputeEffective_Fallback(t *testing.T) {
	text := `Match all
    User nobody
Host web
    HostName 10.0.0.1
    User deploy
`
	eff, err := ComputeEffective(text, "web")
	if err == nil {
		t.Error("expected parse error to be reported")
	}
	if eff.HostName != "10.0.0.1" || eff.User != "deploy" {
		t.Errorf("unexpected effective params: %+v", eff)
	}
}
