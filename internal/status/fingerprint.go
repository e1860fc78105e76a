package status

import (
	"encoding/hex"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns the hex xxh3-128 digest of everything read from r.
func Fingerprint(r io.Reader) (string, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintString fingerprints an in-memory string.
func FingerprintString(s string) string {
	sum := xxh3.HashString128(s).Bytes()
	return hex.EncodeToString(sum[:])
}

// FingerprintFile fingerprints a slash-separated repository path.
func FingerprintFile(sources fs.FS, name string) (string, error) {
	f, err := sources.Open(path.Clean(strings.TrimPrefix(name, "/")))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Fingerprint(f)
}
