package service

import (
	"unicode"
)

// passwordPolicy 永久密码规则
type passwordPolicy struct {
	MinLength     int
	MaxLength     int
	RequireLetter bool
	RequireNumber bool
}

var defaultPasswordPolicy = passwordPolicy{
	MinLength:     8,
	MaxLength:     72, // bcrypt 上限
	RequireLetter: true,
	RequireNumber: true,
}

type passwordPolicyError struct {
	key  string
	args []interface{}
}

func (e passwordPolicyError) Error() string {
	return e.key
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrPasswordInvalid
}

// Key i18n 文案 key
func (e passwordPolicyError) Key() string {
	return e.key
}

// Args 文案参数
func (e passwordPolicyError) Args() []interface{} {
	return e.args
}

func validatePassword(policy passwordPolicy, password string) error {
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return passwordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}
	if policy.MaxLength > 0 && len(password) > policy.MaxLength {
		return passwordPolicyError{key: "error.password_max_length", args: []interface{}{policy.MaxLength}}
	}

	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}
	if policy.RequireLetter && !hasLetter {
		return passwordPolicyError{key: "error.password_require_letter"}
	}
	if policy.RequireNumber && !hasNumber {
		return passwordPolicyError{key: "error.password_require_number"}
	}
	return nil
}
