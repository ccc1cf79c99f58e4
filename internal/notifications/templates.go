package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/angelmondragon/resale-backend/pkg/enums"
)

// TemplateData is the order snapshot every template renders from.
type TemplateData struct {
	CustomerName   string
	OrderID        string
	OrderRef       string
	Total          string
	Currency       string
	Items          []ItemData
	Outlet         *OutletData
	TrackingNumber string
	ShippingTo     string
	CancelReason   string
}

type ItemData struct {
	Name       string
	SellerName string
	Quantity   int
	UnitPrice  string
	LineTotal  string
}

type OutletData struct {
	Name    string
	Address string
	Phone   string
	Hours   string
}

type templateSet struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

const itemsText = `{{range .Items}}- {{.Name}} x{{.Quantity}} @ {{.UnitPrice}}{{if .SellerName}} (sold by {{.SellerName}}){{end}}
{{end}}`

const itemsHTML = `<ul>{{range .Items}}<li>{{.Name}} &times; {{.Quantity}} @ {{.UnitPrice}}{{if .SellerName}} <small>sold by {{.SellerName}}</small>{{end}}</li>{{end}}</ul>`

const outletText = `{{with .Outlet}}Pickup location: {{.Name}}, {{.Address}}{{if .Hours}}
Opening hours: {{.Hours}}{{end}}{{if .Phone}}
Phone: {{.Phone}}{{end}}
{{end}}`

const outletHTML = `{{with .Outlet}}<p>Pickup location: <strong>{{.Name}}</strong><br>{{.Address}}{{if .Hours}}<br>Opening hours: {{.Hours}}{{end}}{{if .Phone}}<br>Phone: {{.Phone}}{{end}}</p>{{end}}`

var rawTemplates = map[enums.NotificationKind][3]string{
	enums.NotificationKindOrderConfirmation: {
		`Order {{.OrderRef}} confirmed`,
		`Hi {{.CustomerName}},

Thanks for your order {{.OrderRef}}. Total: {{.Total}} {{.Currency}}.

` + itemsText + outletText + `{{if .ShippingTo}}Shipping to: {{.ShippingTo}}
{{end}}`,
		`<p>Hi {{.CustomerName}},</p><p>Thanks for your order <strong>{{.OrderRef}}</strong>. Total: {{.Total}} {{.Currency}}.</p>` + itemsHTML + outletHTML + `{{if .ShippingTo}}<p>Shipping to: {{.ShippingTo}}</p>{{end}}`,
	},
	enums.NotificationKindOrderShipped: {
		`Order {{.OrderRef}} has shipped`,
		`Hi {{.CustomerName}},

Your order {{.OrderRef}} is on its way.{{if .TrackingNumber}} Tracking number: {{.TrackingNumber}}.{{end}}

` + itemsText,
		`<p>Hi {{.CustomerName}},</p><p>Your order <strong>{{.OrderRef}}</strong> is on its way.{{if .TrackingNumber}} Tracking number: <code>{{.TrackingNumber}}</code>.{{end}}</p>` + itemsHTML,
	},
	enums.NotificationKindOrderReadyForPickup: {
		`Order {{.OrderRef}} is ready for pickup`,
		`Hi {{.CustomerName}},

Your order {{.OrderRef}} is ready for pickup.

` + outletText + itemsText,
		`<p>Hi {{.CustomerName}},</p><p>Your order <strong>{{.OrderRef}}</strong> is ready for pickup.</p>` + outletHTML + itemsHTML,
	},
	enums.NotificationKindOrderDelivered: {
		`Order {{.OrderRef}} was delivered`,
		`Hi {{.CustomerName}},

Your order {{.OrderRef}} was delivered. Enjoy!
`,
		`<p>Hi {{.CustomerName}},</p><p>Your order <strong>{{.OrderRef}}</strong> was delivered. Enjoy!</p>`,
	},
	enums.NotificationKindOrderCancelled: {
		`Order {{.OrderRef}} was cancelled`,
		`Hi {{.CustomerName}},

Your order {{.OrderRef}} was cancelled{{if .CancelReason}} ({{.CancelReason}}){{end}}. Any reserved items were returned to stock.

` + itemsText,
		`<p>Hi {{.CustomerName}},</p><p>Your order <strong>{{.OrderRef}}</strong> was cancelled{{if .CancelReason}} ({{.CancelReason}}){{end}}.</p>` + itemsHTML,
	},
}

var templates = mustParseTemplates()

func mustParseTemplates() map[enums.NotificationKind]templateSet {
	out := make(map[enums.NotificationKind]templateSet, len(rawTemplates))
	for kind, raw := range rawTemplates {
		name := string(kind)
		out[kind] = templateSet{
			subject: texttemplate.Must(texttemplate.New(name + ".subject").Parse(raw[0])),
			text:    texttemplate.Must(texttemplate.New(name + ".text").Parse(raw[1])),
			html:    htmltemplate.Must(htmltemplate.New(name + ".html").Parse(raw[2])),
		}
	}
	return out
}

// Render produces the subject, plain-text and HTML bodies for kind.
func Render(kind enums.NotificationKind, data TemplateData) (subject, text, html string, err error) {
	set, ok := templates[kind]
	if !ok {
		return "", "", "", fmt.Errorf("no template for notification kind %q", kind)
	}
	var buf bytes.Buffer
	if err := set.subject.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := set.text.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	text = buf.String()

	buf.Reset()
	if err := set.html.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	return subject, text, buf.String(), nil
}
