// Package signature проверяет подпись входящих вебхуков платёжного шлюза.
//
// Заголовок имеет вид "sha256=<hex>", где hex это HMAC-SHA256 тела запроса
// на общем секрете.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// HeaderName имя заголовка с подписью.
const HeaderName = "asaas-signature"

const prefix = "sha256="

// Ошибки проверки подписи.
var (
	ErrMissing  = errors.New("signature header is missing")
	ErrMismatch = errors.New("signature mismatch")
)

// Sign возвращает значение заголовка для тела body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает заголовок с ожидаемой подписью за постоянное время.
func Verify(secret string, body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissing
	}
	if secret == "" {
		return ErrMismatch
	}
	got, ok := strings.CutPrefix(header, prefix)
	if !ok {
		return ErrMismatch
	}
	gotMAC, err := hex.DecodeString(got)
	if err != nil {
		return ErrMismatch
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(gotMAC, mac.Sum(nil)) {
		return ErrMismatch
	}
	return nil
}
