package theme

import (
	"encoding/json"
	"testing"

	"termssh/backend/internal/types"
)

var (
	colorA = map[string]any{"foreground": "#aaaaaa", "background": "#000001"}
	colorB = map[string]any{"foreground": "#bbbbbb", "background": "#000002"}
	colorC = map[string]any{"foreground": "#cccccc", "background": "#000003"}
)

func sakuraTarget() types.ResolvedTarget {
	return types.ResolvedTarget{
		TargetHost:       "omni-sakura",
		IsFromConfigFile: true,
		ResolvedHostName: "49.212.130.181",
		ResolvedUser:     "ubuntu",
	}
}

// TestResolve_FullTargetBeatsHostName 测试完整目标优先于解析出的主机名
func TestResolve_FullTargetBeatsHostName(t *testing.T) {
	hostColors := map[string]any{
		"omni-sakura":    colorA,
		"49.212.130.181": colorB,
	}
	got := Resolve(sakuraTarget(), nil, hostColors)
	if got.Foreground != "#aaaaaa" || got.Background != "#000001" {
		t.Errorf("expected colors A, got %+v", got)
	}
}

// TestResolve_HostPart 测试 user@host 形式取 @ 之后的部分
func TestResolve_HostPart(t *testing.T) {
	target := types.ResolvedTarget{TargetHost: "ubuntu@49.212.130.181"}
	got := Resolve(target, nil, map[string]any{"49.212.130.181": colorB})
	if got.Foreground != "#bbbbbb" {
		t.Errorf("expected colors B, got %+v", got)
	}
}

// TestResolve_ResolvedHostName 测试配置文件主机回退到 HostName
func TestResolve_ResolvedHostName(t *testing.T) {
	got := Resolve(sakuraTarget(), nil, map[string]any{"49.212.130.181": colorB})
	if got.Foreground != "#bbbbbb" {
		t.Errorf("expected colors B, got %+v", got)
	}
}

// TestResolve_UserAtHostName 测试回退到 User@HostName
func TestResolve_UserAtHostName(t *testing.T) {
	got := Resolve(sakuraTarget(), nil, map[string]any{"ubuntu@49.212.130.181": colorC})
	if got.Foreground != "#cccccc" {
		t.Errorf("expected colors C, got %+v", got)
	}
}

// TestResolve_HostNameBeatsUserAtHostName 测试 HostName 优先于 User@HostName
func TestResolve_HostNameBeatsUserAtHostName(t *testing.T) {
	hostColors := map[string]any{
		"ubuntu@49.212.130.181": colorC,
		"49.212.130.181":        colorB,
	}
	got := Resolve(sakuraTarget(), nil, hostColors)
	if got.Foreground != "#bbbbbb" {
		t.Errorf("expected colors B, got %+v", got)
	}
}

// TestResolve_ManualHostIgnoresResolved 测试手动输入的主机不使用解析出的 HostName
func TestResolve_ManualHostIgnoresResolved(t *testing.T) {
	target := sakuraTarget()
	target.IsFromConfigFile = false
	got := Resolve(target, nil, map[string]any{"49.212.130.181": colorB})
	if got != BuiltinColors {
		t.Errorf("expected builtin colors, got %+v", got)
	}
}

// TestResolve_Defaults 测试没有命中时返回默认配色
func TestResolve_Defaults(t *testing.T) {
	defaults := map[string]any{"foreground": " #ffffff ", "background": 42}
	got := Resolve(types.ResolvedTarget{TargetHost: "nowhere"}, defaults, map[string]any{"elsewhere": colorA})
	want := types.TerminalColors{Foreground: "#ffffff", Background: BuiltinColors.Background}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if got := Resolve(types.ResolvedTarget{TargetHost: "x"}, "not-an-object", nil); got != BuiltinColors {
		t.Errorf("invalid defaults should fall back to builtin, got %+v", got)
	}
}

// TestResolve_PartialHit 测试命中项中无效的字段回退到默认配色
func TestResolve_PartialHit(t *testing.T) {
	defaults := types.TerminalColors{Foreground: "#101010", Background: "#202020"}
	hostColors := map[string]any{"web": map[string]any{"background": "#303030", "foreground": ""}}
	got := Resolve(types.ResolvedTarget{TargetHost: " web "}, defaults, hostColors)
	want := types.TerminalColors{Foreground: "#101010", Background: "#303030"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestResolve_FalsyEntrySkipped 测试值为空的项被跳过，继续查找下一个候选
func TestResolve_FalsyEntrySkipped(t *testing.T) {
	hostColors := map[string]any{
		"ubuntu@49.212.130.181": nil,
		"49.212.130.181":        colorB,
	}
	got := Resolve(types.ResolvedTarget{TargetHost: "ubuntu@49.212.130.181"}, nil, hostColors)
	if got.Foreground != "#bbbbbb" {
		t.Errorf("expected colors B, got %+v", got)
	}
}

// TestResolve_KeysAreCaseSensitive 测试键大小写敏感
func TestResolve_KeysAreCaseSensitive(t *testing.T) {
	got := Resolve(types.ResolvedTarget{TargetHost: "Web"}, nil, map[string]any{"web": colorA})
	if got != BuiltinColors {
		t.Errorf("expected builtin colors, got %+v", got)
	}
}

// TestResolve_FromJSON 测试从 JSON 设置解码出来的值
func TestResolve_FromJSON(t *testing.T) {
	var settings struct {
		DefaultColors any            `json:"defaultColors"`
		HostColors    map[string]any `json:"hostColors"`
	}
	raw := `{"defaultColors":{"foreground":"#eeeeee"},"hostColors":{"db":{"background":"#112233"}}}`
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := Resolve(types.ResolvedTarget{TargetHost: "db"}, settings.DefaultColors, settings.HostColors)
	want := types.TerminalColors{Foreground: "#eeeeee", Background: "#112233"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestCandidates 测试候选列表的顺序和去重
func TestCandidates(t *testing.T) {
	tests := []struct {
		name   string
		target types.ResolvedTarget
		want   []string
	}{
		{"config host", sakuraTarget(), []string{"omni-sakura", "49.212.130.181", "ubuntu@49.212.130.181"}},
		{"manual user@host", types.ResolvedTarget{TargetHost: " a@b@host "}, []string{"a@b@host", "host"}},
		{"dedup", types.ResolvedTarget{TargetHost: "u@h", IsFromConfigFile: true, ResolvedHostName: "h", ResolvedUser: "u"}, []string{"u@h", "h"}},
		{"user without hostname", types.ResolvedTarget{TargetHost: "alias", IsFromConfigFile: true, ResolvedUser: "u"}, []string{"alias"}},
		{"empty", types.ResolvedTarget{TargetHost: "   "}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Candidates(tt.target)
			if len(got) != len(tt.want) {
				t.Fatalf("Candidates() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("candidate %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
