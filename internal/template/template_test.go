package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOTPEmails(t *testing.T) {
	tmpl := NewTemplate()
	data := map[string]interface{}{
		"Name":     "Asha Verma",
		"SiteName": "Rozgar",
		"OTP":      "042917",
		"Validity": 15 * time.Minute,
	}
	for _, view := range []string{VerifyOTPEmail, ResetOTPEmail} {
		t.Run(view, func(t *testing.T) {
			out, err := tmpl.RenderString(view, data)
			require.NoError(t, err)
			assert.Contains(t, out, "Hi Asha,")
			assert.Contains(t, out, "0 4 2 9 1 7")
			assert.Contains(t, out, "15 minutes")
		})
	}
}

func TestRenderEscapesName(t *testing.T) {
	out, err := NewTemplate().RenderString(VerifyOTPEmail, map[string]interface{}{
		"Name":     "<script>x</script>",
		"SiteName": "Rozgar",
		"OTP":      "1",
		"Validity": time.Minute,
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestMarkdownToHTML(t *testing.T) {
	tmpl := NewTemplate()
	out := string(tmpl.MarkdownToHTML("Build apps with **React**\n\n<script>alert(1)</script>"))
	assert.Contains(t, out, "<strong>React</strong>")
	assert.NotContains(t, out, "<script>")
}
