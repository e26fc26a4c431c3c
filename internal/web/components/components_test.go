package components

import (
	"strings"
	"testing"

	"github.com/akeren/acs-site/internal/web/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	g "maragu.dev/gomponents"
)

func render(t *testing.T, node g.Node) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, node.Render(&b))
	return b.String()
}

func testSite(t *testing.T) *content.Site {
	t.Helper()
	site, err := content.Load()
	require.NoError(t, err)
	return site
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AP", Initials("Anay Pant"))
	assert.Equal(t, "SN", Initials("siddarth nuthi"))
	assert.Equal(t, "M", Initials("Madonna"))
	assert.Equal(t, "JR", Initials("John Ronald Tolkien"))
	assert.Equal(t, "", Initials("   "))
}

func TestLayout_ChromeAndYear(t *testing.T) {
	site := testSite(t)

	html := render(t, MarketingPage(site, PageConfig{Path: "/marketing", Year: 2031}))

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>ACS - Automated Consultancy Services</title>")
	assert.Contains(t, html, `href="/solutions"`)
	assert.Contains(t, html, `href="/contact"`)
	assert.Contains(t, html, "© 2031 ACS. All rights reserved.")
	assert.Contains(t, html, `aria-current="page"`)
	assert.Contains(t, html, "Lead Conversion Pipeline")
}

func TestSolutionsPage_RendersAnchors(t *testing.T) {
	site := testSite(t)

	html := render(t, SolutionsPage(site, PageConfig{Path: "/solutions"}))

	for _, id := range []string{"conversation", "marketing", "scoring", "analytics"} {
		assert.Contains(t, html, `id="`+id+`"`)
	}
	assert.Contains(t, html, "Priority-Based Lead Routing")
}

func TestContactPage_FormState(t *testing.T) {
	site := testSite(t)

	html := render(t, ContactPage(site, PageConfig{Path: "/contact"}, ContactFormView{
		Name:           "<b>Ann</b>",
		Errors:         map[string]string{"email": "Please enter a valid email address"},
		APIError:       "Failed to send email.",
		IdempotencyKey: "key-1",
	}))

	assert.Contains(t, html, `id="contact-form"`)
	assert.Contains(t, html, "&lt;b&gt;Ann&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Ann</b>")
	assert.Contains(t, html, "Please enter a valid email address")
	assert.Contains(t, html, "Failed to send email.")
	assert.Contains(t, html, `value="key-1"`)
	assert.Contains(t, html, "/static/js/contact.js")
	assert.Contains(t, html, "Co-Founder")
}

func TestContactPage_SubmittedState(t *testing.T) {
	site := testSite(t)

	html := render(t, ContactPage(site, PageConfig{}, ContactFormView{
		Submitted: true,
		MessageID: "<abc@acs>",
		Response:  "250 Message accepted",
	}))

	assert.Contains(t, html, "Message Sent Successfully!")
	assert.Contains(t, html, "&lt;abc@acs&gt;")
	assert.Contains(t, html, "250 Message accepted")
	assert.NotContains(t, html, `id="contact-form"`)
}
