package types

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribePermissions(t *testing.T) {
	tests := []struct {
		mode    fs.FileMode
		numeric string
		owner   string
		group   string
		others  string
	}{
		{0o644, "0644", "rw-", "r--", "r--"},
		{0o755 | fs.ModeDir, "0755", "rwx", "r-x", "r-x"},
		{0o600, "0600", "rw-", "---", "---"},
		{0o000, "0000", "---", "---", "---"},
	}

	for _, tt := range tests {
		t.Run(tt.numeric, func(t *testing.T) {
			d := DescribePermissions("/x", tt.mode)
			assert.Equal(t, tt.numeric, d.NumericMode)
			assert.Equal(t, tt.owner, d.Owner.String())
			assert.Equal(t, tt.group, d.Group.String())
			assert.Equal(t, tt.others, d.Others.String())
			assert.Equal(t, tt.mode.IsDir(), d.IsDirectory)
		})
	}
}

func TestDecode(t *testing.T) {
	rec := &FileRecord{Content: []byte("hi")}

	text, err := rec.Decode(EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	text, err = rec.Decode(EncodingBase64)
	require.NoError(t, err)
	assert.Equal(t, "aGk=", text)

	text, err = rec.Decode(EncodingHex)
	require.NoError(t, err)
	assert.Equal(t, "6869", text)

	_, err = rec.Decode("rot13")
	assert.Error(t, err)
}

func TestDecodeInvalidUTF8(t *testing.T) {
	rec := &FileRecord{Content: []byte{'a', 0xff, 'b'}}
	text, err := rec.Decode(EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "a�b", text)
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("UTF-8")
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, enc)

	enc, err = ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, enc)

	_, err = ParseEncoding("latin1")
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	rec := &FileRecord{Path: "/a", Content: []byte("abc")}
	c := rec.Clone()
	c.Content[0] = 'z'
	assert.Equal(t, "abc", string(rec.Content))
	assert.Nil(t, (*FileRecord)(nil).Clone())
}
