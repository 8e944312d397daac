package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathsFormatter(t *testing.T) {
	out := render(t, "paths", &Result{Gamma: sampleGamma(), Delta: sampleDelta()})

	assert.Equal(t, []string{
		"facts/fact3.txt",
		"facts/fact1.txt",
		"rules/rule1.txt",
		"facts/fact2.txt",
		"facts/fact3.txt",
		"rules/rule3.txt",
	}, strings.Split(strings.TrimSuffix(out, "\n"), "\n"))
}

func TestNullFormatter(t *testing.T) {
	out := render(t, "null", &Result{Gamma: sampleGamma()})

	assert.Equal(t, "facts/fact3.txt\x00facts/fact1.txt\x00rules/rule1.txt\x00", out)
}

func TestPathsFormatter_Empty(t *testing.T) {
	assert.Empty(t, render(t, "paths", &Result{}))
}
