package domain

import "fmt"

// Credentials API 凭证（client_credentials 授权方式）
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// IsComplete 两个字段都非空
func (c Credentials) IsComplete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// String 打印时隐藏密钥
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClientID:%s ClientSecret:***}", c.ClientID)
}
