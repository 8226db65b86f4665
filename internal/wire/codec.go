package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Payloads are UTF-8 JSON, carried base64-encoded because the link layer
// is not 8-bit-clean for arbitrary text.

func Marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("wire: encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func Unmarshal(payload string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("wire: transport decode: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("wire: decode: %w", err)
	}
	return nil
}
