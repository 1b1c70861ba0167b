package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuhoang/student-records-api/pkg/config"
)

func TestStudentValidatorsEmail(t *testing.T) {
	rules, err := NewStudentValidators(config.ValidationConfig{AllowedEmailDomain: "@student.university.edu.vn"})
	require.NoError(t, err)

	assert.True(t, rules.ValidEmail("sv001@student.university.edu.vn"))
	assert.True(t, rules.ValidEmail("SV001@STUDENT.UNIVERSITY.EDU.VN"))
	assert.False(t, rules.ValidEmail("sv001@gmail.com"))
	assert.False(t, rules.ValidEmail("no-at-sign"))
	assert.False(t, rules.ValidEmail("trailing@"))
	assert.Equal(t, "student.university.edu.vn", rules.EmailDomain())
}

func TestStudentValidatorsEmailUnrestricted(t *testing.T) {
	rules, err := NewStudentValidators(config.ValidationConfig{})
	require.NoError(t, err)

	assert.True(t, rules.ValidEmail("anyone@anywhere.com"))
}

func TestStudentValidatorsPhone(t *testing.T) {
	rules, err := NewStudentValidators(config.ValidationConfig{
		PhonePatterns: []config.PhonePattern{
			{Name: "VN", Regex: `^(\+84|0)[35789]\d{8}$`},
			{Name: "US", Regex: `^\+1\d{10}$`},
		},
	})
	require.NoError(t, err)

	name, ok := rules.ValidPhone("0912345678")
	assert.True(t, ok)
	assert.Equal(t, "VN", name)

	name, ok = rules.ValidPhone("+12025550101")
	assert.True(t, ok)
	assert.Equal(t, "US", name)

	_, ok = rules.ValidPhone("12345")
	assert.False(t, ok)
}

func TestStudentValidatorsBadPattern(t *testing.T) {
	_, err := NewStudentValidators(config.ValidationConfig{
		PhonePatterns: []config.PhonePattern{{Name: "broken", Regex: `([`}},
	})
	require.Error(t, err)
}
