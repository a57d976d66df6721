// Package mail renders and delivers the service's outbound email: the
// daily reflection and the subscription confirmation message. Rendering
// is separate from transport so the delivery fan-out composes a
// per-recipient message once and hands it to whichever Mailer the
// profile wires (SES in deployed environments, noop locally).
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

const confirmationSubject = "Confirm Your Daily Stoic Reflection Subscription"

var textDivider = strings.Repeat("=", 70)

// Subject is the daily email subject line for a month's theme.
func Subject(theme domain.MonthlyTheme) string {
	return "Daily Stoic Reflection: " + theme.Name
}

// Renderer assembles outbound messages. The website URL is the public
// site base for confirmation and unsubscribe links; the secret signs
// unsubscribe tokens. With either unset, daily emails carry no
// unsubscribe footer.
type Renderer struct {
	websiteURL string
	secret     string
}

// NewRenderer creates a renderer. A trailing slash on websiteURL is
// tolerated.
func NewRenderer(websiteURL, secret string) *Renderer {
	return &Renderer{
		websiteURL: strings.TrimRight(websiteURL, "/"),
		secret:     secret,
	}
}

type reflectionHTMLData struct {
	Theme          string
	Quote          string
	Attribution    string
	Paragraphs     []string
	UnsubscribeURL string
}

type reflectionTextData struct {
	Divider        string
	Quote          string
	Attribution    string
	Reflection     string
	UnsubscribeURL string
}

// ReflectionEmail renders the daily reflection for one recipient. The
// HTML body is a styled standalone document; the text body is the
// fallback for clients that refuse HTML.
func (r *Renderer) ReflectionEmail(from, to string, content domain.GeneratedReflection, theme domain.MonthlyTheme) (ports.OutboundEmail, error) {
	unsubscribe := r.unsubscribeURL(to)

	var htmlBuf bytes.Buffer
	err := reflectionHTML.Execute(&htmlBuf, reflectionHTMLData{
		Theme:          theme.Name,
		Quote:          content.Quote,
		Attribution:    content.Attribution,
		Paragraphs:     splitParagraphs(content.Reflection),
		UnsubscribeURL: unsubscribe,
	})
	if err != nil {
		return ports.OutboundEmail{}, fmt.Errorf("rendering html body: %w", err)
	}

	var textBuf bytes.Buffer
	err = reflectionText.Execute(&textBuf, reflectionTextData{
		Divider:        textDivider,
		Quote:          content.Quote,
		Attribution:    content.Attribution,
		Reflection:     strings.TrimSpace(content.Reflection),
		UnsubscribeURL: unsubscribe,
	})
	if err != nil {
		return ports.OutboundEmail{}, fmt.Errorf("rendering text body: %w", err)
	}

	return ports.OutboundEmail{
		From:     from,
		To:       to,
		Subject:  Subject(theme),
		HTMLBody: htmlBuf.String(),
		TextBody: strings.TrimSpace(textBuf.String()),
	}, nil
}

type confirmationData struct {
	ConfirmationURL string
}

// ConfirmationEmail renders the double-opt-in message for a new
// subscriber. The link lands on the website's confirmation page, which
// calls the confirm endpoint with the token.
func (r *Renderer) ConfirmationEmail(from, to, token string) (ports.OutboundEmail, error) {
	if r.websiteURL == "" {
		return ports.OutboundEmail{}, errors.New("website URL is not configured")
	}

	data := confirmationData{
		ConfirmationURL: r.websiteURL + "/confirm.html?token=" + url.QueryEscape(token),
	}

	var htmlBuf bytes.Buffer
	if err := confirmationHTML.Execute(&htmlBuf, data); err != nil {
		return ports.OutboundEmail{}, fmt.Errorf("rendering html body: %w", err)
	}

	var textBuf bytes.Buffer
	if err := confirmationText.Execute(&textBuf, data); err != nil {
		return ports.OutboundEmail{}, fmt.Errorf("rendering text body: %w", err)
	}

	return ports.OutboundEmail{
		From:     from,
		To:       to,
		Subject:  confirmationSubject,
		HTMLBody: htmlBuf.String(),
		TextBody: textBuf.String(),
	}, nil
}

// unsubscribeURL builds the per-recipient unsubscribe link. The token is
// deterministic over address and secret, so the link stays valid for
// every mail ever sent to that address.
func (r *Renderer) unsubscribeURL(email string) string {
	if r.websiteURL == "" || r.secret == "" {
		return ""
	}

	token := domain.UnsubscribeTokenFor(email, r.secret)

	return fmt.Sprintf("%s/unsubscribe.html?email=%s&token=%s", r.websiteURL, url.QueryEscape(email), token)
}

// splitParagraphs breaks the reflection on blank lines and collapses the
// whitespace inside each paragraph, so hard-wrapped model output still
// renders as clean HTML paragraphs.
func splitParagraphs(reflection string) []string {
	var paragraphs []string
	for _, block := range strings.Split(reflection, "\n\n") {
		cleaned := strings.Join(strings.Fields(block), " ")
		if cleaned != "" {
			paragraphs = append(paragraphs, cleaned)
		}
	}

	return paragraphs
}

var (
	reflectionHTML   = template.Must(template.New("reflection_html").Parse(reflectionHTMLSource))
	reflectionText   = texttemplate.Must(texttemplate.New("reflection_text").Parse(reflectionTextSource))
	confirmationHTML = template.Must(template.New("confirmation_html").Parse(confirmationHTMLSource))
	confirmationText = texttemplate.Must(texttemplate.New("confirmation_text").Parse(confirmationTextSource))
)

const reflectionHTMLSource = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Daily Stoic Reflection</title>
    <style>
        body {
            font-family: Georgia, 'Times New Roman', serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f9f9f9;
        }
        .container {
            background-color: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .header {
            text-align: center;
            margin-bottom: 30px;
            border-bottom: 2px solid #2c3e50;
            padding-bottom: 20px;
        }
        .header h1 {
            margin: 0;
            color: #2c3e50;
            font-size: 28px;
        }
        .theme {
            color: #7f8c8d;
            font-style: italic;
            font-size: 14px;
            margin-top: 5px;
        }
        .quote {
            font-size: 18px;
            font-style: italic;
            color: #34495e;
            margin: 30px 0;
            padding: 20px;
            background-color: #ecf0f1;
            border-left: 4px solid #3498db;
        }
        .attribution {
            text-align: right;
            color: #7f8c8d;
            font-size: 14px;
            margin-top: 10px;
        }
        .reflection {
            margin-top: 30px;
            font-size: 16px;
            text-align: justify;
        }
        .reflection p {
            margin-bottom: 15px;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #ecf0f1;
            text-align: center;
            font-size: 12px;
            color: #95a5a6;
        }
        .footer a {
            color: #95a5a6;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Daily Stoic Reflection</h1>
            <div class="theme">{{.Theme}}</div>
        </div>

        <div class="quote">
            {{.Quote}}
            <div class="attribution">— {{.Attribution}}</div>
        </div>

        <div class="reflection">
{{- range .Paragraphs}}
            <p>{{.}}</p>
{{- end}}
        </div>

        <div class="footer">
            Daily Stoic Reflection • Powered by Claude
{{- if .UnsubscribeURL}}
            <br><a href="{{.UnsubscribeURL}}">Unsubscribe</a>
{{- end}}
        </div>
    </div>
</body>
</html>`

const reflectionTextSource = `{{.Divider}}
DAILY STOIC REFLECTION
{{.Divider}}

"{{.Quote}}"

— {{.Attribution}}

{{.Divider}}

{{.Reflection}}

{{.Divider}}
Daily Stoic Reflection • Powered by Claude
{{- if .UnsubscribeURL}}

Unsubscribe: {{.UnsubscribeURL}}
{{- end}}`

const confirmationHTMLSource = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Confirm Your Subscription</title>
</head>
<body style="font-family: Georgia, 'Times New Roman', serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
        <h1 style="color: #2c3e50; text-align: center; border-bottom: 2px solid #2c3e50; padding-bottom: 20px;">
            Daily Stoic Reflection
        </h1>

        <p style="font-size: 16px; margin: 20px 0;">
            Thank you for subscribing to Daily Stoic Reflection!
        </p>

        <p style="font-size: 16px; margin: 20px 0;">
            To confirm your subscription and start receiving daily stoic wisdom, please click the button below:
        </p>

        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.ConfirmationURL}}"
               style="background-color: #3498db; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; display: inline-block; font-size: 16px;">
                Confirm Subscription
            </a>
        </div>

        <p style="font-size: 14px; color: #7f8c8d; margin: 20px 0;">
            Or copy and paste this link into your browser:<br>
            <a href="{{.ConfirmationURL}}" style="color: #3498db; word-break: break-all;">{{.ConfirmationURL}}</a>
        </p>

        <p style="font-size: 14px; color: #7f8c8d; margin: 30px 0 0 0; border-top: 1px solid #ecf0f1; padding-top: 20px; text-align: center;">
            If you didn't request this subscription, you can safely ignore this email.
        </p>
    </div>
</body>
</html>`

const confirmationTextSource = `Daily Stoic Reflection - Confirm Your Subscription

Thank you for subscribing to Daily Stoic Reflection!

To confirm your subscription and start receiving daily stoic wisdom, please click this link:

{{.ConfirmationURL}}

If you didn't request this subscription, you can safely ignore this email.

---
Daily Stoic Reflection • Powered by Claude
`
