package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBranchName(t *testing.T) {
	valid := []string{
		"main",
		"feature/add-auth",
		"fix-123",
		"release/v1.2.3",
	}
	for _, name := range valid {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, ValidateBranchName(name))
		})
	}

	invalid := []string{
		"",
		"@",
		".hidden",
		"/leading",
		"-leading",
		"trailing.",
		"trailing/",
		"trailing-",
		"a.lock",
		"double..dot",
		"double//slash",
		"at@{brace",
		"has space",
		"has~tilde",
		"has:colon",
		"has?mark",
		"has*star",
		"has[bracket",
		"has\\backslash",
	}
	for _, name := range invalid {
		t.Run("invalid_"+name, func(t *testing.T) {
			assert.Error(t, ValidateBranchName(name))
		})
	}
}
