package renderer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpelch/ai-chatbot/internal/models"
)

func TestHTMLNonAssistantIsLiteral(t *testing.T) {
	r := New()

	for _, role := range []models.Role{models.RoleUser, models.RoleSystem, models.RoleError} {
		out := string(r.HTML(role, `**not markdown** <b>not html</b>`))
		assert.NotContains(t, out, "<b>", "role %s", role)
		assert.Contains(t, out, "&lt;b&gt;", "role %s", role)
		assert.Contains(t, out, "**not markdown**", "role %s", role)
	}
}

func TestHTMLAssistantMarkdown(t *testing.T) {
	r := New()

	out := string(r.HTML(models.RoleAssistant, "Some **bold** text and `code`."))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestHTMLAssistantSanitizes(t *testing.T) {
	r := New()

	tests := []struct {
		name    string
		content string
		banned  []string
	}{
		{
			name:    "script tag",
			content: `hello <script>alert(1)</script>`,
			banned:  []string{"<script", "alert(1)"},
		},
		{
			name:    "event handler",
			content: `<b onmouseover="alert(1)">hi</b>`,
			banned:  []string{"onmouseover"},
		},
		{
			name:    "javascript url",
			content: `<a href="javascript:alert(1)">x</a>`,
			banned:  []string{"javascript:"},
		},
		{
			name:    "image",
			content: `<img src="https://example.com/x.png">`,
			banned:  []string{"<img"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(r.HTML(models.RoleAssistant, tt.content))
			for _, b := range tt.banned {
				assert.NotContains(t, out, b)
			}
		})
	}
}

func TestHTMLAssistantLinksGetNofollow(t *testing.T) {
	r := New()

	out := string(r.HTML(models.RoleAssistant, `[dex](https://example.com)`))
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `rel="nofollow"`)
}

func TestHTMLAssistantWalletCard(t *testing.T) {
	r := New()
	card := BuildWalletSummaryCard("0x1234...5678", 1.5, 2000, 3000)

	out := string(r.HTML(models.RoleAssistant, card))
	assert.Contains(t, out, `class="card card-wallet"`)
	assert.Contains(t, out, "My bags — Base")
	assert.Contains(t, out, "<dd>1.5000</dd>")
	assert.Contains(t, out, "<dd>$2000.00</dd>")
	assert.Contains(t, out, "<dd>$3000.00</dd>")
	assert.NotContains(t, out, "**")
}

func TestHTMLAssistantGainersCard(t *testing.T) {
	r := New()
	content := "Top gainers (trending):\n" +
		"1. WOW / WETH — $0.001234 (12.5%)\n" +
		"2. DOWN / WETH — $0.5 (-3.2%)"

	out := string(r.HTML(models.RoleAssistant, content))
	assert.Contains(t, out, `class="card card-gainers"`)
	assert.Contains(t, out, `<span class="change up">12.5%</span>`)
	assert.Contains(t, out, `<span class="change down">-3.2%</span>`)
}

func TestHTMLAssistantGasCard(t *testing.T) {
	r := New()
	content := "Gas (Base):\n" +
		"- Low: maxFee 0.9 gwei, tip 0.1 gwei\n" +
		"- Standard: maxFee 1.3 gwei, tip 0.2 gwei\n" +
		"- Fast: maxFee 2.1 gwei, tip 0.4 gwei"

	out := string(r.HTML(models.RoleAssistant, content))
	assert.Contains(t, out, `class="card card-gas"`)
	assert.Contains(t, out, "<dt>Standard</dt><dd>maxFee 1.3 gwei, tip 0.2 gwei</dd>")
}

func TestHTMLAssistantPartialCardFallsThrough(t *testing.T) {
	r := New()

	// A gas header whose tiers have not streamed in yet renders as Markdown,
	// not as a broken card.
	out := string(r.HTML(models.RoleAssistant, "Gas (Base):\n- Low: maxFee 0."))
	assert.NotContains(t, out, "card-gas")
	assert.Contains(t, out, "Gas (Base):")
}

func TestMarkdownFencedCodeHighlighting(t *testing.T) {
	md := NewMarkdown()

	out, err := md.Render("```go\nfunc main() {}\n```")
	require.NoError(t, err)
	assert.Contains(t, out, "<pre")
	assert.True(t, strings.Contains(out, "chroma") || strings.Contains(out, "<code"),
		"expected highlighted or plain code block, got %q", out)
}
