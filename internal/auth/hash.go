package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for new hashes. Stored hashes carry their own.
const (
	defaultTime    uint32 = 3
	defaultMemory  uint32 = 64 * 1024 // KiB
	defaultThreads uint8  = 1
	defaultSaltLen uint32 = 16
	defaultKeyLen  uint32 = 32
	phcAlg                = "argon2id"
	phcVersion            = 19
)

// HashPassword returns a PHC string:
// $argon2id$v=19$m=65536,t=3,p=1$<saltB64>$<hashB64>
func HashPassword(secret string) (string, error) {
	salt := make([]byte, defaultSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(secret), salt, defaultTime, defaultMemory, defaultThreads, defaultKeyLen)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlg, phcVersion, defaultMemory, defaultTime, defaultThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifyPassword checks secret against a PHC string in constant time.
func VerifyPassword(phc, secret string) bool {
	params, salt, sum, err := parsePHC(phc)
	if err != nil {
		return false
	}
	calc := argon2.IDKey([]byte(secret), salt, params.time, params.memory, params.threads, uint32(len(sum)))
	return subtle.ConstantTimeCompare(calc, sum) == 1
}

// IsPHC reports whether stored is an argon2id PHC string.
func IsPHC(stored string) bool {
	return strings.HasPrefix(stored, "$"+phcAlg+"$")
}

// Match compares a presented client hash with the stored credential.
//
// Stored values that are not PHC strings are legacy plain client hashes;
// a match against one sets upgrade so the caller can re-store it hashed.
func Match(stored, presented string) (ok, upgrade bool) {
	if stored == "" || presented == "" {
		return false, false
	}
	if IsPHC(stored) {
		return VerifyPassword(stored, presented), false
	}
	ok = subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
	return ok, ok
}

type phcParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

func parsePHC(phc string) (phcParams, []byte, []byte, error) {
	// "", alg, v=19, params, salt, hash
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phcParams{}, nil, nil, errors.New("invalid phc: parts")
	}
	if parts[1] != phcAlg {
		return phcParams{}, nil, nil, fmt.Errorf("unsupported alg: %s", parts[1])
	}
	if parts[2] != "v="+strconv.Itoa(phcVersion) {
		return phcParams{}, nil, nil, fmt.Errorf("unsupported version: %s", parts[2])
	}

	var pp phcParams
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "m":
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				pp.memory = uint32(n)
			}
		case "t":
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				pp.time = uint32(n)
			}
		case "p":
			if n, err := strconv.ParseUint(v, 10, 8); err == nil {
				pp.threads = uint8(n)
			}
		}
	}
	if pp.memory == 0 || pp.time == 0 || pp.threads == 0 {
		return phcParams{}, nil, nil, errors.New("invalid phc: params")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return phcParams{}, nil, nil, errors.New("invalid phc: salt")
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return phcParams{}, nil, nil, errors.New("invalid phc: hash")
	}
	return pp, salt, sum, nil
}
