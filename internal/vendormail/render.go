package vendormail

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// bodyData feeds both body templates. Items with an empty description are
// filtered out before rendering.
type bodyData struct {
	Intro   []string
	Items   []Item
	Company string
}

const textBody = `{{range .Intro}}{{.}}

{{end}}{{range .Items}}- {{itemLine .}}{{with .Dimensions}}
Dimensions: {{.}}{{end}}

{{end}}Please provide the unit price and expected lead time for each item listed above.

Thank you,
{{.Company}}
`

const htmlBody = `{{range .Intro}}<p>{{.}}</p>
{{end}}<table border="1" style="border-collapse: collapse; width: 100%; font-size: 10pt; margin-bottom: 15px;">
  <thead style="background-color: #f2f2f2;">
    <tr>
      <th style="padding: 5px; text-align: left;">Description</th>
      <th style="padding: 5px; text-align: left;">SKU</th>
      <th style="padding: 5px; text-align: left;">Manufacturer</th>
    </tr>
  </thead>
  <tbody>
{{range .Items}}    <tr>
      <td style="padding: 5px;">{{itemLine .}}{{with .Dimensions}}<br>Dimensions: {{.}}{{end}}</td>
      <td style="padding: 5px;">{{.SKU}}</td>
      <td style="padding: 5px;">{{.Manufacturer}}</td>
    </tr>
{{end}}  </tbody>
</table>
<p>Please provide the unit price and expected lead time for each item listed above.</p>
<p>Thank you,<br>{{.Company}}</p>
`

// itemLine renders "Description - Type (Qty: N)" with absent parts dropped.
func itemLine(item Item) string {
	line := item.Description
	if item.Type != "" {
		line += " - " + item.Type
	}
	if item.Quantity != "" {
		line += fmt.Sprintf(" (Qty: %s)", item.Quantity)
	}
	return line
}

var (
	textTmpl = texttemplate.Must(texttemplate.New("text").
			Funcs(texttemplate.FuncMap{"itemLine": itemLine}).Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").
			Funcs(htmltemplate.FuncMap{"itemLine": itemLine}).Parse(htmlBody))
)

// renderBodies produces the plain-text and HTML bodies for one vendor's
// items. The HTML side is escaped by html/template, so cell contents typed
// into the sheet cannot inject markup.
func renderBodies(items []Item, customMessage, company string) (string, string, error) {
	intro := []string{
		"Dear Vendor,",
		"We would like to request price quotes and current availability for the following items:",
	}
	if strings.TrimSpace(customMessage) != "" {
		intro = nil
		for _, line := range strings.Split(customMessage, "\n") {
			if strings.TrimSpace(line) != "" {
				intro = append(intro, line)
			}
		}
	}

	withDescription := make([]Item, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Description) != "" {
			withDescription = append(withDescription, item)
		}
	}

	data := bodyData{Intro: intro, Items: withDescription, Company: company}

	var text, html strings.Builder
	if err := textTmpl.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("failed to render plain body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("failed to render HTML body: %w", err)
	}
	return text.String(), html.String(), nil
}
