package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations PBKDF2迭代次数
	Iterations = 100000
	// KeyLength 派生密钥长度(字节)
	KeyLength = 256
	// SaltLength 盐长度(字节)
	SaltLength = 64
)

// NewSalt 生成新的随机盐，每次写入凭据都必须重新生成
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Hash 用PBKDF2-SHA256派生密码哈希，返回十六进制字符串
func Hash(plain string, salt []byte) string {
	key := pbkdf2.Key([]byte(plain), salt, Iterations, KeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// Verify 校验密码
func Verify(plain string, salt []byte, hash string) bool {
	candidate := Hash(plain, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}
