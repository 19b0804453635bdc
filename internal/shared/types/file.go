package types

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"
)

// Encoding selects how file content is rendered as text
type Encoding string

const (
	EncodingUTF8   Encoding = "utf8"
	EncodingBase64 Encoding = "base64"
	EncodingHex    Encoding = "hex"
)

// ParseEncoding accepts the common spellings of each encoding
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf8", "utf-8":
		return EncodingUTF8, nil
	case "base64":
		return EncodingBase64, nil
	case "hex":
		return EncodingHex, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", s)
	}
}

// FileRecord is the unit the read cache stores and returns
type FileRecord struct {
	Path           string      `json:"path"`
	Content        []byte      `json:"-"`
	Text           string      `json:"text,omitempty"`
	Size           int64       `json:"size"`
	CreatedAt      time.Time   `json:"created_at"`
	ModifiedAt     time.Time   `json:"modified_at"`
	IsDirectory    bool        `json:"is_directory"`
	PermissionBits fs.FileMode `json:"permission_bits"`
	MIMEType       string      `json:"mime_type,omitempty"`
	Charset        string      `json:"charset,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate cached content
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Content != nil {
		c.Content = append([]byte(nil), r.Content...)
	}
	return &c
}

// Decode renders the content in the requested encoding
func (r *FileRecord) Decode(enc Encoding) (string, error) {
	switch enc {
	case "", EncodingUTF8:
		if utf8.Valid(r.Content) {
			return string(r.Content), nil
		}
		return strings.ToValidUTF8(string(r.Content), "�"), nil
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(r.Content), nil
	case EncodingHex:
		return hex.EncodeToString(r.Content), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", enc)
	}
}
