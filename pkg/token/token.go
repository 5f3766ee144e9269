package token

import (
	"crypto/rand"
	"encoding/hex"
)

// Length 令牌原始字节数，编码后为32个十六进制字符
const Length = 16

// New 生成新的不透明会话令牌
func New() (string, error) {
	b := make([]byte, Length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
