package security

import "encoding/base64"

func base64RawEncode(b []byte) string {
	return base64.RawStdEncoding.EncodeToString(b)
}

func base64RawDecode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(s)
}
