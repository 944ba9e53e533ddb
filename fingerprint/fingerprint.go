package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const murmurMultiplier uint32 = 1540483477

// SHA1 returns the lowercase hex SHA-1 digest of data.
func SHA1(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SHA1Reader streams r through SHA-1.
func SHA1Reader(r io.Reader) (string, error) {
	hasher := sha1.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SHA1File hashes the file at path.
func SHA1File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()
	return SHA1Reader(file)
}

func isWhitespace(b byte) bool {
	return b == 9 || b == 10 || b == 13 || b == 32
}

// Murmur2 computes the CurseForge file fingerprint: a Murmur2 hash over the
// non-whitespace bytes of data, seeded with 1 xor the normalized length.
func Murmur2(data []byte) uint32 {
	var normalizedLength uint32
	for _, b := range data {
		if !isWhitespace(b) {
			normalizedLength++
		}
	}

	num2 := 1 ^ normalizedLength
	var num3 uint32
	var num4 uint
	for _, b := range data {
		if isWhitespace(b) {
			continue
		}
		num3 |= uint32(b) << num4
		num4 += 8
		if num4 == 32 {
			num6 := num3 * murmurMultiplier
			num7 := (num6 ^ (num6 >> 24)) * murmurMultiplier
			num2 = num2*murmurMultiplier ^ num7
			num3 = 0
			num4 = 0
		}
	}

	if num4 > 0 {
		num2 = (num2 ^ num3) * murmurMultiplier
	}

	num6 := (num2 ^ (num2 >> 13)) * murmurMultiplier
	return num6 ^ (num6 >> 15)
}
