package cache

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidKey   = "CACHE_INVALID_KEY"
	TextCodeCommitFailed = "CACHE_COMMIT_FAILED"
	TextCodeItemMiss     = "CACHE_ITEM_MISS"
)

// reservedCharacters may not appear in cache keys.
const reservedCharacters = "{}()/\\@:"

// ErrInvalidKey is returned for empty keys or keys with reserved characters.
var ErrInvalidKey = goerrors.New("invalid cache key", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidKey).
	WithCode(goerrors.CodeBadRequest)

// ErrCommitFailed is returned by Close when a deferred item could not be saved.
var ErrCommitFailed = goerrors.New("failed to commit deferred cache items", goerrors.CategoryOperation).
	WithTextCode(TextCodeCommitFailed).
	WithCode(goerrors.CodeInternal)

// ErrItemMiss is returned when decoding an item that holds no value.
var ErrItemMiss = goerrors.New("cache item is a miss", goerrors.CategoryNotFound).
	WithTextCode(TextCodeItemMiss).
	WithCode(goerrors.CodeNotFound)

// IsInvalidKey reports whether err is an ErrInvalidKey.
func IsInvalidKey(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode == TextCodeInvalidKey
	}
	return false
}

// ValidateKey checks key against the reserved character set.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, reservedCharacters) {
		clone := ErrInvalidKey.Clone()
		if clone == nil {
			return ErrInvalidKey
		}
		return clone.WithMetadata(map[string]any{
			"key":      key,
			"reserved": reservedCharacters,
		})
	}
	return nil
}

// SafeKey replaces reserved characters with an underscore.
func SafeKey(key string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedCharacters, r) {
			return '_'
		}
		return r
	}, key)
}
