package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const (
	trackingAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
	trackingRandomLength = 6
)

func randomString(alphabet string, length int) (string, error) {
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

// TrackingNumberGenerator 运单号生成器
type TrackingNumberGenerator func(now time.Time) (string, error)

// newTrackingNumberGenerator 前缀 + yymmdd + 6 位大写字母数字
func newTrackingNumberGenerator(prefix string) TrackingNumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "PCL"
	}
	return func(now time.Time) (string, error) {
		suffix, err := randomString(trackingAlphabet, trackingRandomLength)
		if err != nil {
			return "", err
		}
		return prefix + now.Format("060102") + suffix, nil
	}
}

func generateTempPassword(length int) (string, error) {
	if length < 8 {
		length = 12
	}
	return randomString(tempPasswordAlphabet, length)
}
