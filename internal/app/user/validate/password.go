package validate

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"
)

// PasswordChecker returns one message per violated rule; an empty result
// means the password is acceptable.
type PasswordChecker interface {
	Check(password string) []string
}

type PasswordRule func(password string) (msg string, ok bool)

type PasswordPolicy struct {
	rules []PasswordRule
}

func NewPasswordPolicy(rules ...PasswordRule) PasswordPolicy {
	return PasswordPolicy{rules: rules}
}

// DefaultPasswordPolicy: at least 8 characters, not all digits, not common.
func DefaultPasswordPolicy() PasswordPolicy {
	return NewPasswordPolicy(
		MinLength(8),
		NotNumeric(),
		NotCommon(commonPasswords),
	)
}

func (p PasswordPolicy) Check(password string) []string {
	var msgs []string
	for _, rule := range p.rules {
		if msg, ok := rule(password); !ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func MinLength(n int) PasswordRule {
	return func(password string) (string, bool) {
		if len([]rune(password)) >= n {
			return "", true
		}
		return fmt.Sprintf("This password is too short. It must contain at least %d characters.", n), false
	}
}

func NotNumeric() PasswordRule {
	return func(password string) (string, bool) {
		if password == "" {
			return "", true
		}
		for _, r := range password {
			if !unicode.IsDigit(r) {
				return "", true
			}
		}
		return "This password is entirely numeric.", false
	}
}

func NotCommon(list map[string]struct{}) PasswordRule {
	return func(password string) (string, bool) {
		if _, found := list[strings.ToLower(strings.TrimSpace(password))]; found {
			return "This password is too common.", false
		}
		return "", true
	}
}

//go:embed common_passwords.txt
var commonPasswordsRaw string

var commonPasswords = parseList(commonPasswordsRaw)

func parseList(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.ToLower(strings.TrimSpace(line)); line != "" {
			out[line] = struct{}{}
		}
	}
	return out
}
