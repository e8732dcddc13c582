package terminal

import (
	"strings"

	"termssh/backend/internal/types"
)

// 认证失败时 ssh 客户端输出的特征
var authFailureMarkers = []string{
	"permission denied (publickey",
	"permission denied (publickey,gssapi-keyex,gssapi-with-mic",
	"no such identity",
	"sign_and_send_pubkey",
}

// ShouldRetryWithPrivateKey 根据退出码和 stderr 尾部判断是否像是公钥认证失败。
// 退出码为 0 时总是 false；被信号终止（code 为 nil）时只看 stderr
func ShouldRetryWithPrivateKey(code *int, stderrTail string) bool {
	if code != nil && *code == 0 {
		return false
	}
	normalized := strings.ToLower(stderrTail)
	for _, marker := range authFailureMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// ShouldOfferRetry 只对手动输入且没有指定私钥的连接提示重试，每次连接尝试最多一次
func ShouldOfferRetry(exit types.ConnectionExit) bool {
	if exit.Error != "" || exit.Canceled || exit.Config.UseConfigFile || exit.Config.PrivateKeyPath != "" {
		return false
	}
	return ShouldRetryWithPrivateKey(exit.Code, exit.StderrTail)
}
