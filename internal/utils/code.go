package utils

import (
	"errors"
	"fmt"
	"strconv"
)

// CodeHookFunc defines the signature for the NextCode test hook.
// It returns a Code and a boolean indicating whether to override the default allocation.
type CodeHookFunc func(sequence string) (code Code, override bool)

// NextCodeHook is a package-level variable that tests can set to override code allocation.
var NextCodeHook CodeHookFunc

// Code is the public 7-digit numeric identifier every entity carries
// (users, articles, chats, purchases, ...). The first value allocated
// from any sequence is 1000001.
type Code int64

const (
	// CodeMin and CodeMax bound the 7-digit identifier space.
	CodeMin Code = 1000001
	CodeMax Code = 9999999
)

// ParseCode parses the decimal string representation of a Code.
func ParseCode(s string) (Code, error) {
	if s == "" {
		return 0, errors.New("empty code")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid code %q: %w", s, err)
	}
	c := Code(n)
	if !c.Valid() {
		return 0, fmt.Errorf("code %d out of range", n)
	}
	return c, nil
}

// Valid reports whether the code falls inside the 7-digit space.
func (c Code) Valid() bool {
	return c >= CodeMin && c <= CodeMax
}

// IsZero reports whether the code is unset.
func (c Code) IsZero() bool {
	return c == 0
}

// String returns the decimal representation of the code.
func (c Code) String() string {
	return strconv.FormatInt(int64(c), 10)
}
