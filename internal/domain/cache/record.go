package cache

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"github.com/spf13/afero"

	"github.com/GriffinCanCode/fsplane/internal/shared/fserr"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// charsetSample bounds the bytes handed to charset detection
const charsetSample = 4096

// load stats and reads path into a fresh record
func load(fs afero.Fs, path string) (*types.FileRecord, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fserr.Classify("read", path, err)
	}

	rec := &types.FileRecord{
		Path:           path,
		ModifiedAt:     info.ModTime(),
		CreatedAt:      createdAt(info),
		IsDirectory:    info.IsDir(),
		PermissionBits: info.Mode().Perm(),
	}
	if info.IsDir() {
		return rec, nil
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fserr.Classify("read", path, err)
	}
	rec.Content = content
	rec.Size = int64(len(content))

	mtype := mimetype.Detect(content)
	rec.MIMEType = mtype.String()
	if isText(mtype) {
		rec.Charset = detectCharset(content)
	}
	return rec, nil
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return strings.HasPrefix(mtype.String(), "text/")
}

func detectCharset(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	if len(content) > charsetSample {
		content = content[:charsetSample]
	}
	result, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}
