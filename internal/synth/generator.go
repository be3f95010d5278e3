// Package synth produces synthetic test records.
package synth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

const (
	idChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idLen   = 8

	// KeyPrefix starts every synthetic record key.
	KeyPrefix = "TEST_"

	emailDomain = "company.com"

	minAge   = 20
	ageSpan  = 50
	minPhone = 1000000000
	// phones are 10 digits: [1000000000, 9999999999]
	phoneSpan = 9000000000
)

// Generator produces random synthetic record fields using crypto/rand.
type Generator struct{}

// New creates a generator.
func New() *Generator {
	return &Generator{}
}

// Key returns TEST_ followed by an 8-character uppercase alphanumeric id.
func (g *Generator) Key() string {
	buf := make([]byte, idLen)
	for i := range buf {
		buf[i] = idChars[randIntn(len(idChars))]
	}
	return KeyPrefix + string(buf)
}

// Email returns the sequential address for the i-th record of a batch.
func (g *Generator) Email(i int) string {
	return fmt.Sprintf("testuser%d@%s", i, emailDomain)
}

// Phone returns a random 10-digit phone number.
func (g *Generator) Phone() string {
	return strconv.FormatInt(int64(minPhone)+randInt63n(phoneSpan), 10)
}

// Age returns a random age in [20, 69].
func (g *Generator) Age() int {
	return minAge + randIntn(ageSpan)
}

// randIntn returns a cryptographically random int in [0, n).
func randIntn(n int) int {
	return int(randInt63n(int64(n)))
}

func randInt63n(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("crypto/rand: " + err.Error())
	}
	return v.Int64()
}
