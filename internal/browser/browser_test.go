// internal/browser/browser_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navlens/navlens-cli/internal/config"
	"github.com/navlens/navlens-cli/internal/page"
)

func TestAllocatorFlags(t *testing.T) {
	t.Run("OmitsAutomationFlag", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Headless: true})
		assert.NotContains(t, flags, "enable-automation")
		assert.Equal(t, "AutomationControlled", flags["disable-blink-features"])
	})

	t.Run("HeadlessDrivesGPU", func(t *testing.T) {
		headless := allocatorFlags(config.BrowserConfig{Headless: true})
		headed := allocatorFlags(config.BrowserConfig{Headless: false})
		assert.Equal(t, true, headless["headless"])
		assert.Equal(t, true, headless["disable-gpu"])
		assert.Equal(t, false, headed["headless"])
		assert.Equal(t, false, headed["disable-gpu"])
	})

	t.Run("IgnoreTLSErrors", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{IgnoreTLSErrors: true})
		assert.Equal(t, true, flags["ignore-certificate-errors"])
	})

	t.Run("UserAgentOnlyWhenSet", func(t *testing.T) {
		withUA := allocatorFlags(config.BrowserConfig{UserAgent: "navlens-audit"})
		withoutUA := allocatorFlags(config.BrowserConfig{})
		assert.Equal(t, "navlens-audit", withUA["user-agent"])
		assert.NotContains(t, withoutUA, "user-agent")
	})
}

func TestBuildAllocatorOptionsCoversAllFlags(t *testing.T) {
	cfg := config.BrowserConfig{Headless: true}
	opts := buildAllocatorOptions(cfg)
	// NoFirstRun and NoDefaultBrowserCheck plus one option per flag.
	assert.Len(t, opts, len(allocatorFlags(cfg))+2)
}

func TestRefSelector(t *testing.T) {
	assert.Equal(t, `[data-navlens-id="nl-7"]`, refSelector(page.NodeRef("nl-7")))
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"plain"`, jsString("plain"))
	assert.Equal(t, `"a \"quoted\" selector"`, jsString(`a "quoted" selector`))
}

func TestQueryScript(t *testing.T) {
	t.Run("Single", func(t *testing.T) {
		script := queryScript("document", `nav[aria-label="Main"]`, false)
		assert.Contains(t, script, `querySelector(sel)`)
		assert.Contains(t, script, `"nav[aria-label=\"Main\"]"`)
		assert.Contains(t, script, "data-navlens-id")
	})

	t.Run("All", func(t *testing.T) {
		script := queryScript("document", "a[href]", true)
		assert.Contains(t, script, "querySelectorAll(sel)")
	})
}

func TestKeyForName(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "Escape", key: "Escape"},
		{name: "Tab", key: "Tab"},
		{name: "Enter", key: "Enter"},
		{name: "SingleRune", key: "a"},
		{name: "MultibyteRune", key: "é"},
		{name: "Unknown", key: "ScrollLock", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := keyForName(tc.key)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, raw)
		})
	}
}
