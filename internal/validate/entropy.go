package validate

import "math"

// shannonEntropy returns the Shannon entropy of s in bits per byte:
// H = -Σ p(c)·log2 p(c) over the byte frequency distribution. Ciphertext
// and good encodings of it score near 6-8 bits; natural language and
// formatted identifiers sit well below 4.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	total := float64(len(s))
	var h float64
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		h -= p * math.Log2(p)
	}
	return h
}
