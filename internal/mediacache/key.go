package mediacache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"lexideck/internal/textutil"
)

const keyVersion = "lexideck-media-v1"

// digestLength is the number of hex characters of the SHA-256 digest kept in
// file names.
const digestLength = 32

// Key identifies one cacheable artifact. Content is NFC-normalized and
// trimmed before hashing; Ext only affects the file name.
type Key struct {
	Kind    string
	Content string
	Variant string
	Ext     string
}

// Digest returns the hex-encoded address of the key under the given media
// revision.
func (k Key) Digest(revision string) string {
	h := sha256.New()
	for _, part := range []string{
		keyVersion,
		strings.TrimSpace(k.Kind),
		textutil.NFC(strings.TrimSpace(k.Content)),
		strings.TrimSpace(k.Variant),
		strings.TrimSpace(revision),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileName returns the flat file name for the key, e.g.
// "_image_3f2a...c1.jpg".
func (k Key) FileName(revision string) string {
	ext := strings.TrimSpace(k.Ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return "_" + textutil.SanitizeToken(k.Kind) + "_" + k.Digest(revision)[:digestLength] + ext
}

// Empty reports whether the key has no content to address.
func (k Key) Empty() bool {
	return strings.TrimSpace(k.Content) == ""
}
