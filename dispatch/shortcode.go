package dispatch

import "crypto/rand"

// Four upper case base36 characters, good for 1.6 million combinations and
// short enough to read back over a bad phone line.
const (
	shortCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortCodeLength   = 4
)

// newShortCode returns a random report code such as "7QT3".
func newShortCode() (string, error) {
	buf := make([]byte, shortCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
	}
	return string(buf), nil
}
