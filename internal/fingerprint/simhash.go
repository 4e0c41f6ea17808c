package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
	"regexp"
	"strings"
)

// wordPattern matches the alphanumeric word tokens used for simhash.
var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases text and returns the frequency of each word token.
func tokenize(text string) map[string]int {
	if text == "" {
		return nil
	}

	freqs := make(map[string]int)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		freqs[word]++
	}
	return freqs
}

// wordHash maps a word to a hashBits-wide integer. The first eight bytes
// of the word's SHA-256 digest give a well-mixed 64-bit value, masked
// down to the configured width.
func wordHash(word string, hashBits uint) uint64 {
	sum := sha256.Sum256([]byte(word))
	h := binary.BigEndian.Uint64(sum[:8])
	if hashBits >= 64 {
		return h
	}
	return h & ((1 << hashBits) - 1)
}

// simhash computes the frequency-weighted simhash fingerprint of text.
//
// For each word, each bit position of the word's hash pulls a signed
// accumulator up (bit set) or down (bit clear) by the word's frequency.
// The fingerprint sets bit i when accumulator[i] ends positive. Words
// that appear often therefore dominate the fingerprint, which keeps it
// stable under small edits such as boilerplate or navigation changes.
func simhash(text string, hashBits uint) uint64 {
	vector := make([]int, hashBits)

	for word, freq := range tokenize(text) {
		h := wordHash(word, hashBits)
		for i := uint(0); i < hashBits; i++ {
			if h>>i&1 == 1 {
				vector[i] += freq
			} else {
				vector[i] -= freq
			}
		}
	}

	var fp uint64
	for i := uint(0); i < hashBits; i++ {
		if vector[i] > 0 {
			fp |= 1 << i
		}
	}
	return fp
}

// hammingSimilarity returns the fraction of matching bits between two
// fingerprints, in [0, 1].
func hammingSimilarity(a, b uint64, hashBits uint) float64 {
	xor := a ^ b
	if hashBits < 64 {
		xor &= (1 << hashBits) - 1
	}
	matching := int(hashBits) - bits.OnesCount64(xor)
	return float64(matching) / float64(hashBits)
}
