package store

import (
	"crypto/rand"
	"fmt"
)

const (
	base36Alphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	fileIDLength     = 10
	documentIDLength = 6
	idMaxAttempts    = 20
)

// GenerateID returns prefix-<length random base36 chars>.
// It retries on collisions using the provided exists function.
func GenerateID(prefix string, length int, exists func(string) (bool, error)) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}
	if length <= 0 {
		return "", fmt.Errorf("id length must be > 0")
	}

	for i := 0; i < idMaxAttempts; i++ {
		hash, err := randomBase36(length)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", prefix, hash)
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

// GenerateFileID returns a new attachment id using the fl- prefix.
func GenerateFileID(exists func(string) (bool, error)) (string, error) {
	return GenerateID("fl", fileIDLength, exists)
}

// GenerateDocumentName returns a new document name using the doc- prefix.
func GenerateDocumentName(exists func(string) (bool, error)) (string, error) {
	return GenerateID("doc", documentIDLength, exists)
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}
