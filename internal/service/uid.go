package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// uidAlphabet es el alfabeto base 64 usado para los identificadores de usuario.
const uidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-_"

const userIDLength = 11

var errInvalidUID = errors.New("invalid uid")

// EncodeUID codifica el email del usuario para usarlo en enlaces de tokens.
func EncodeUID(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(email))
}

// DecodeUID recupera el email desde un uid de enlace.
func DecodeUID(uid string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", errInvalidUID
	}
	return string(raw), nil
}

// newUserID genera un identificador corto aleatorio para un usuario nuevo.
func newUserID() (string, error) {
	buf := make([]byte, userIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = uidAlphabet[int(b)%len(uidAlphabet)]
	}
	return string(buf), nil
}
