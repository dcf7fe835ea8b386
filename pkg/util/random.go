package util

import (
	"math/rand"
)

// GetRandomLowerString returns a random string of lowercase letters and digits
// GetRandomLowerString 生成只含小写字母和数字的随机字符串
func GetRandomLowerString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
