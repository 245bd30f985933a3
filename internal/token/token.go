// Package token 生成与校验 base62 随机令牌
package token

import (
	"crypto/rand"
	"errors"
	"io"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// maxUnbiased 小于该值的字节对 62 取模是均匀的（62*4=248）
const maxUnbiased = 248

// ErrInvalidLength 令牌长度非法
var ErrInvalidLength = errors.New("token length must be positive")

// Generate 生成指定长度的 base62 令牌，使用拒绝采样保证每个字符均匀分布
func Generate(length int) (string, error) {
	return generateFrom(rand.Reader, length)
}

func generateFrom(source io.Reader, length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	out := make([]byte, 0, length)
	// 平均约 3% 的字节被丢弃，多读一些减少读取次数
	buf := make([]byte, length+length/4+4)
	for len(out) < length {
		if _, err := io.ReadFull(source, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[b%62])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// IsValidFormat 判断令牌长度是否精确匹配且仅包含 [0-9A-Za-z]
func IsValidFormat(value string, expectedLength int) bool {
	if expectedLength <= 0 || len(value) != expectedLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
