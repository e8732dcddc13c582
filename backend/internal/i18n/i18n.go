package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key 消息的标识
type Key string

const (
	NewConnection          Key = "newConnection"
	QuickPickPlaceholder   Key = "quickPickPlaceholder"
	EnterHostname          Key = "enterHostname"
	EnterUsername          Key = "enterUsername"
	Connecting             Key = "connecting"
	Connected              Key = "connected"
	SSHConfigNotFound      Key = "sshConfigNotFound"
	ReadConfigError        Key = "readConfigError"
	PrivateKeyNotFound     Key = "privateKeyNotFound"
	PrivateKeyRetryPrompt  Key = "privateKeyRetryPrompt"
	PrivateKeyRetryAction  Key = "privateKeyRetryAction"
	PrivateKeyInvalid      Key = "privateKeyInvalid"
	SelectPrivateKeyDialog Key = "selectPrivateKeyDialog"
)

var supported = []language.Tag{language.English, language.Japanese}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[Key]string{
	language.English: {
		NewConnection:          "New SSH connection...",
		QuickPickPlaceholder:   "Select a configured SSH host or enter user@host",
		EnterHostname:          "Enter SSH hostname",
		EnterUsername:          "Enter username",
		Connecting:             "Connecting to %s...",
		Connected:              "Connected to %s",
		SSHConfigNotFound:      "SSH configuration file not found: %s",
		ReadConfigError:        "Failed to read SSH configuration file: %v",
		PrivateKeyNotFound:     "Private key file not found: %s",
		PrivateKeyRetryPrompt:  "Public key authentication to %s failed. Retry with a private key file?",
		PrivateKeyRetryAction:  "Select private key...",
		PrivateKeyInvalid:      "The selected file may not be a private key: %v",
		SelectPrivateKeyDialog: "Select private key",
	},
	language.Japanese: {
		NewConnection:          "新しいSSH接続...",
		QuickPickPlaceholder:   "設定済みの SSH ホストを選択するか、user@host を入力してください",
		EnterHostname:          "SSH 接続先ホスト名を入力してください",
		EnterUsername:          "ユーザー名を入力してください",
		Connecting:             "%s に接続しています...",
		Connected:              "%s に接続しました",
		SSHConfigNotFound:      "SSH 設定ファイルが見つかりません: %s",
		ReadConfigError:        "SSH 設定ファイルの読み込みに失敗しました: %v",
		PrivateKeyNotFound:     "秘密鍵ファイルが見つかりません: %s",
		PrivateKeyRetryPrompt:  "%s への公開鍵認証に失敗しました。秘密鍵ファイルを指定して再接続しますか？",
		PrivateKeyRetryAction:  "秘密鍵を選択...",
		PrivateKeyInvalid:      "選択したファイルは秘密鍵ではない可能性があります: %v",
		SelectPrivateKeyDialog: "秘密鍵を選択",
	},
}

var cat = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, string(key), msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Resolve 选择界面语言。configured 为 en 或 ja 时优先使用，
// 否则根据系统语言匹配，匹配不上时使用英语
func Resolve(configured, systemLanguage string) language.Tag {
	switch strings.ToLower(strings.TrimSpace(configured)) {
	case "en":
		return language.English
	case "ja":
		return language.Japanese
	}

	tag, err := language.Parse(normalizeLocale(systemLanguage))
	if err != nil {
		return language.English
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

// SystemLanguage 从 LC_ALL / LC_MESSAGES / LANG 读取系统语言
func SystemLanguage() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(name); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return ""
}

// normalizeLocale 把 ja_JP.UTF-8 这样的写法转成 ja-JP
func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ReplaceAll(locale, "_", "-")
}

// Printer 按语言格式化消息
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

func NewPrinter(tag language.Tag) *Printer {
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

func (p *Printer) Language() language.Tag {
	return p.tag
}

func (p *Printer) Sprintf(key Key, args ...any) string {
	return p.p.Sprintf(string(key), args...)
}

// 界面上直接显示、不带参数的文案
var uiKeys = []Key{
	NewConnection,
	QuickPickPlaceholder,
	EnterHostname,
	EnterUsername,
	PrivateKeyRetryAction,
	SelectPrivateKeyDialog,
}

// UIMessages 返回前端使用的文案，key 为消息名
func (p *Printer) UIMessages() map[string]string {
	out := make(map[string]string, len(uiKeys))
	for _, key := range uiKeys {
		out[string(key)] = p.Sprintf(key)
	}
	return out
}
