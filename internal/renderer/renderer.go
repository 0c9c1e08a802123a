// Package renderer turns chat message content into the HTML fragments the
// transcript templates embed. Assistant replies are checked against the
// structured card grammars first; everything else is sanitized Markdown.
// User, system, and error messages are always literal text.
package renderer

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/xpelch/ai-chatbot/internal/models"
)

// Renderer chooses a rendering strategy per message role and content.
type Renderer struct {
	md *Markdown
}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{md: NewMarkdown()}
}

// HTML renders a message body. The returned fragment is safe to embed.
func (r *Renderer) HTML(role models.Role, content string) template.HTML {
	if role != models.RoleAssistant {
		return template.HTML(escape(content))
	}

	// First grammar match wins: wallet summary, then gainers, then gas.
	if w := ParseWalletSummary(content); w != nil {
		return walletCardHTML(w)
	}
	if g := ParseTopGainers(content); g != nil {
		return gainersCardHTML(g)
	}
	if g := ParseGasSummary(content); g != nil {
		return gasCardHTML(g)
	}

	out, err := r.md.Render(content)
	if err != nil {
		return template.HTML(escape(content))
	}
	return template.HTML(out)
}

func escape(s string) string {
	return template.HTMLEscapeString(s)
}

func walletCardHTML(w *WalletSummaryData) template.HTML {
	var sb strings.Builder
	sb.WriteString(`<div class="card card-wallet">`)
	fmt.Fprintf(&sb, `<div class="card-title">%s</div>`, escape(w.Title))
	if w.AddressShort != "" {
		fmt.Fprintf(&sb, `<div class="card-sub"><code>%s</code></div>`, escape(w.AddressShort))
	}
	sb.WriteString(`<dl class="card-stats">`)
	fmt.Fprintf(&sb, `<dt>ETH</dt><dd>%.4f</dd>`, w.BalanceETH)
	fmt.Fprintf(&sb, `<dt>Price</dt><dd>$%.2f</dd>`, w.PriceUSD)
	fmt.Fprintf(&sb, `<dt>Value</dt><dd>$%.2f</dd>`, w.ValueUSD)
	sb.WriteString(`</dl></div>`)
	return template.HTML(sb.String())
}

func gainersCardHTML(g *TopGainersData) template.HTML {
	var sb strings.Builder
	sb.WriteString(`<div class="card card-gainers">`)
	fmt.Fprintf(&sb, `<div class="card-title">%s</div><ol class="card-list">`, escape(g.Title))
	for _, item := range g.Items {
		sb.WriteString(`<li>`)
		fmt.Fprintf(&sb, `<span class="pair">%s</span>`, escape(item.SymbolPair))
		if item.PriceText != "" {
			fmt.Fprintf(&sb, ` <span class="price">%s</span>`, escape(item.PriceText))
		}
		if item.ChangeText != "" {
			cls := "up"
			if strings.HasPrefix(item.ChangeText, "-") {
				cls = "down"
			}
			fmt.Fprintf(&sb, ` <span class="change %s">%s</span>`, cls, escape(item.ChangeText))
		}
		sb.WriteString(`</li>`)
	}
	sb.WriteString(`</ol></div>`)
	return template.HTML(sb.String())
}

func gasCardHTML(g *GasSummaryData) template.HTML {
	var sb strings.Builder
	sb.WriteString(`<div class="card card-gas">`)
	fmt.Fprintf(&sb, `<div class="card-title">%s</div><dl class="card-stats">`, escape(g.Title))
	for _, t := range []GasTier{g.Low, g.Standard, g.Fast} {
		fmt.Fprintf(&sb, `<dt>%s</dt><dd>maxFee %.1f gwei, tip %.1f gwei</dd>`,
			escape(t.Label), t.MaxFeeGwei, t.TipGwei)
	}
	sb.WriteString(`</dl></div>`)
	return template.HTML(sb.String())
}
