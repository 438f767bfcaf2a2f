// Package prompt assembles the completion request for a leasing email draft.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"leasemail/pkg/domain"
	"leasemail/pkg/store"
)

// DateLayout is the format of the date line in a draft.
const DateLayout = "January 2, 2006"

// Input is everything one draft request depends on.
type Input struct {
	Contact       domain.Contact
	ContactEmail  string
	History       domain.History
	UserPrompt    string
	CurrentDate   string
	OperatorName  string
	SenderName    string
	SenderAddress string
}

const exampleEmail = `Hello, I'm {{.OperatorName}}, with {{.SenderName}}, a Bay Area real estate investment and development firm. We are leasing offices to local businesses at our Bayfair Speedway location in San Leandro. We have spaces ranging from 600 to 5000 square feet, suitable for all businesses. This is a great opportunity to move into a more spacious office offered at competitive pricing. The building has its own generator and power grid. Feel free to reach out, and we can provide more information or answer specific questions.

You can contact me at {{.SenderAddress}}.`

const requestTemplate = `You are a helpful commercial real estate intern on behalf of {{.SenderName}} that writes leasing outreach emails personalized to the contact's company and industry and to the vacancies we have.

Your email address is {{.SenderAddress}}.

Use the conversation history to stay consistent with earlier drafts and instructions.

Use this example as a guide, but adapt it to the contact's industry and personalize it for the contact person. Do not copy it word for word:

"` + exampleEmail + `"

Conversation history:
{{if .Context}}{{.Context}}{{else}}(none){{end}}

Contact:
- Name: {{.Contact.Name}}
- Email: {{.ContactEmail}}
- Phone: {{.Contact.Phone}}
- Company: {{.Contact.Company}}
- Industry: {{.Contact.Industry}}

Today's date: {{.CurrentDate}}

Respond with ONLY the email, no commentary, no JSON, no surrounding quotes, in exactly this shape:

Subject: <subject line>

Date: {{.CurrentDate}}

Hello {{.Contact.Name}},

    <first body paragraph, indented>

    <further body paragraphs, indented>

Best regards,
{{.OperatorName}}
{{.SenderName}}
{{.SenderAddress}}

User: {{.UserPrompt}}
AI:`

var request = template.Must(template.New("request").Option("missingkey=error").Parse(requestTemplate))

type templateData struct {
	Input
	Context string
}

// Build renders the completion request. Every contact field, the contact
// email and the user prompt are required; none is dropped silently.
func Build(in Input) (string, error) {
	var missing []string
	for _, field := range in.Contact.MissingFields() {
		missing = append(missing, "contact "+field)
	}
	if strings.TrimSpace(in.ContactEmail) == "" {
		missing = append(missing, "contact email")
	}
	if strings.TrimSpace(in.UserPrompt) == "" {
		missing = append(missing, "prompt")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("build prompt: missing %s", strings.Join(missing, ", "))
	}

	var sb strings.Builder
	if err := request.Execute(&sb, templateData{Input: in, Context: store.RenderContext(in.History)}); err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	return sb.String(), nil
}
