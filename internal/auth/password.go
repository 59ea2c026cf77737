// Package auth provides the password KDF and session-token signing used by
// the entity store and the request dispatcher.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ErrInvalidPassword is returned when password validation or comparison fails.
var ErrInvalidPassword = errors.New("invalid password")

// KDFParams are the scrypt cost parameters named by the external
// configuration: workfactor is the CPU/memory cost exponent (N = 1<<workfactor),
// blocksize is r, parallel is p, and length is the derived key length.
type KDFParams struct {
	Workfactor int
	Blocksize  int
	Parallel   int
	Length     int
}

const saltLength = 16

// HashPassword derives a scrypt hash under the given KDF parameters and
// encodes it together with its salt and cost parameters so that
// CheckPassword can later reconstruct the same derivation regardless of
// whether the configured cost has since changed.
func HashPassword(password string, params KDFParams) (string, error) {
	if password == "" {
		return "", ErrInvalidPassword
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	n := 1 << params.Workfactor
	key, err := scrypt.Key([]byte(password), salt, n, params.Blocksize, params.Parallel, params.Length)
	if err != nil {
		return "", err
	}
	return encode(params, salt, key), nil
}

// CheckPassword verifies a password against its encoded hash in constant
// time with respect to the comparison step.
func CheckPassword(password, encoded string) error {
	params, salt, want, err := decode(encoded)
	if err != nil {
		return err
	}
	n := 1 << params.Workfactor
	got, err := scrypt.Key([]byte(password), salt, n, params.Blocksize, params.Parallel, params.Length)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

func encode(p KDFParams, salt, key []byte) string {
	return fmt.Sprintf("scrypt$%d$%d$%d$%s$%s",
		p.Workfactor, p.Blocksize, p.Parallel,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func decode(encoded string) (KDFParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "scrypt" {
		return KDFParams{}, nil, nil, errors.New("malformed password hash")
	}
	workfactor, err := strconv.Atoi(parts[1])
	if err != nil {
		return KDFParams{}, nil, nil, err
	}
	blocksize, err := strconv.Atoi(parts[2])
	if err != nil {
		return KDFParams{}, nil, nil, err
	}
	parallel, err := strconv.Atoi(parts[3])
	if err != nil {
		return KDFParams{}, nil, nil, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return KDFParams{}, nil, nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return KDFParams{}, nil, nil, err
	}
	return KDFParams{Workfactor: workfactor, Blocksize: blocksize, Parallel: parallel, Length: len(key)}, salt, key, nil
}
