package util

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex hashes a string, e.g. a URL into a workflow ID.
func SHA256Hex(s string) string {
	x := sha256.Sum256([]byte(s))
	return hex.EncodeToString(x[:])
}

// MD5Hex is used for chunk content keys; collision resistance is not relied on.
func MD5Hex(b []byte) string {
	x := md5.Sum(b)
	return hex.EncodeToString(x[:])
}
