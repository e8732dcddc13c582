package sshproc

// BuildArgs 构造 ssh 客户端参数。
// 总是强制分配伪终端并关闭主机密钥确认，避免会话卡在交互提示上；
// 目标主机总是最后一个参数。
func BuildArgs(host string, useConfigFile bool, configPath, privateKeyPath string) []string {
	args := []string{"-tt", "-o", "StrictHostKeyChecking=no"}
	if useConfigFile && configPath != "" {
		args = append(args, "-F", configPath)
	}
	if privateKeyPath != "" {
		args = append(args, "-i", privateKeyPath, "-o", "IdentitiesOnly=yes")
	}
	return append(args, host)
}
