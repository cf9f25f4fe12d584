package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Credentials API 凭证（与 api_key.json 格式一致）
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SecretReader 读取加密存储中的凭证（由 pkg/secretstore 实现）
type SecretReader interface {
	GetCredentials() (clientID, clientSecret string, found bool, err error)
}

// LoadCredentialsFile 读取 {"client_id": "...", "client_secret": "..."} 文件
func LoadCredentialsFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	creds.ClientID = strings.TrimSpace(creds.ClientID)
	creds.ClientSecret = strings.TrimSpace(creds.ClientSecret)
	return &creds, nil
}

// ResolveCredentials 按优先级解析凭证：环境变量 > 加密存储 > 凭证文件。
// store 可以为 nil；两个字段都为空时返回错误。
func ResolveCredentials(c CredentialsConfig, store SecretReader) (*Credentials, error) {
	creds := &Credentials{}

	switch {
	case store != nil:
		id, secret, found, err := store.GetCredentials()
		if err != nil {
			return nil, fmt.Errorf("读取加密存储失败: %w", err)
		}
		if found {
			creds.ClientID, creds.ClientSecret = id, secret
		}
	case c.File != "":
		if _, err := os.Stat(c.File); err == nil {
			fileCreds, err := LoadCredentialsFile(c.File)
			if err != nil {
				return nil, err
			}
			creds = fileCreds
		}
	}

	creds.ClientID = getEnv("DERIBIT_CLIENT_ID", creds.ClientID)
	creds.ClientSecret = getEnv("DERIBIT_CLIENT_SECRET", creds.ClientSecret)

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("未找到完整的 API 凭证（client_id/client_secret）")
	}
	return creds, nil
}
