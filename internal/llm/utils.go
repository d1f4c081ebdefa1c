package llm

import "encoding/base64"

// DataURL encodes bytes as a data URL of the given MIME type.
func DataURL(b []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b)
}
