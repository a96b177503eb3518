package stream

import "encoding/base64"

// tus metadata values are base64 encoded per the protocol.
func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
