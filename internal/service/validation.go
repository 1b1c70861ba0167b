package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vuhoang/student-records-api/pkg/config"
)

// StudentValidators holds institution-specific format rules compiled from
// configuration, applied on top of struct-tag validation.
type StudentValidators struct {
	emailDomain   string
	phonePatterns []phonePattern
}

type phonePattern struct {
	name string
	re   *regexp.Regexp
}

// NewStudentValidators compiles the configured rules.
func NewStudentValidators(cfg config.ValidationConfig) (*StudentValidators, error) {
	v := &StudentValidators{emailDomain: strings.TrimPrefix(cfg.AllowedEmailDomain, "@")}
	for _, p := range cfg.PhonePatterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("compile phone pattern %q: %w", p.Name, err)
		}
		v.phonePatterns = append(v.phonePatterns, phonePattern{name: p.Name, re: re})
	}
	return v, nil
}

// ValidEmail reports whether the address belongs to the allowed domain.
func (v *StudentValidators) ValidEmail(email string) bool {
	if v.emailDomain == "" {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.EqualFold(email[at+1:], v.emailDomain)
}

// ValidPhone reports whether the number matches any configured regional
// pattern, returning the pattern name on success.
func (v *StudentValidators) ValidPhone(phone string) (string, bool) {
	if len(v.phonePatterns) == 0 {
		return "", true
	}
	for _, p := range v.phonePatterns {
		if p.re.MatchString(phone) {
			return p.name, true
		}
	}
	return "", false
}

// EmailDomain exposes the configured domain for error messages.
func (v *StudentValidators) EmailDomain() string {
	return v.emailDomain
}
