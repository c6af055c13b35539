// internal/findings/findings_test.go
package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityValid(t *testing.T) {
	for _, s := range []Severity{SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Severity("catastrophic").Valid())
	assert.False(t, Severity("").Valid())
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.MoreSevere(SeverityMajor))
	assert.True(t, SeverityMajor.MoreSevere(SeverityInfo))
	assert.False(t, SeverityInfo.MoreSevere(SeverityMinor))
	assert.False(t, SeverityMajor.MoreSevere(SeverityMajor))
}

func TestCountBySeverity(t *testing.T) {
	run := &Run{Findings: []Finding{
		{Severity: SeverityMajor},
		{Severity: SeverityMajor},
		{Severity: SeverityInfo},
	}}
	counts := run.CountBySeverity()
	assert.Equal(t, 2, counts[SeverityMajor])
	assert.Equal(t, 1, counts[SeverityInfo])
	assert.Zero(t, counts[SeverityCritical])
}
