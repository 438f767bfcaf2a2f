package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"leasemail/internal/util"
	"leasemail/pkg/domain"
	"leasemail/services/drafter/internal/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Draft emails interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()
		return newChat(rt.app.NewSession(), cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
	},
}

// chat is the terminal front end over app.Session.
type chat struct {
	session *app.Session
	in      *bufio.Scanner
	out     io.Writer
}

// maxLineBytes bounds one line of operator input; pasted briefs can be long.
const maxLineBytes = 1 << 20

func newChat(session *app.Session, in io.Reader, out io.Writer) *chat {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &chat{session: session, in: scanner, out: out}
}

var errQuit = errors.New("quit")

func (c *chat) run(ctx context.Context) error {
	fmt.Fprintln(c.out, "B3 Leasing Email Generator")
	fmt.Fprintln(c.out, "Type 'exit' to quit, '/clear' to clear history, '/contact' to switch contacts.")
	err := c.loop(ctx)
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
		fmt.Fprintln(c.out, "Goodbye!")
		return nil
	}
	return err
}

func (c *chat) loop(ctx context.Context) error {
	if err := c.login(); err != nil {
		return err
	}
	if err := c.selectContact(ctx); err != nil {
		return err
	}
	for {
		line, err := c.ask("You: ")
		if err != nil {
			return err
		}
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return errQuit
		case "/clear":
			if err := c.clear(ctx); err != nil {
				fmt.Fprintf(c.out, "Could not clear history: %v\n", err)
				continue
			}
			fmt.Fprintln(c.out, "Conversation history cleared.")
			continue
		case "/contact":
			if err := c.selectContact(ctx); err != nil {
				return err
			}
			continue
		}
		if err := c.session.SetPrompt(line); err != nil {
			fmt.Fprintln(c.out, userMessage(err))
			continue
		}
		draft, err := c.session.Generate(util.ContextWithRequestID(ctx, util.NewID()))
		if err != nil {
			fmt.Fprintln(c.out, userMessage(err))
			continue
		}
		fmt.Fprintf(c.out, "\nAI-Generated Email:\n\n%s\n\n", draft.Text)
	}
}

func (c *chat) login() error {
	for {
		name, err := c.ask("Enter your name: ")
		if err != nil {
			return err
		}
		phone, err := c.ask("Enter your phone number: ")
		if err != nil {
			return err
		}
		member, err := c.session.Login(name, phone)
		if err != nil {
			fmt.Fprintln(c.out, userMessage(err))
			continue
		}
		fmt.Fprintf(c.out, "Welcome, %s!\n", app.DisplayName(member.Name))
		return nil
	}
}

func (c *chat) selectContact(ctx context.Context) error {
	for {
		email, err := c.ask("Enter contact's email: ")
		if err != nil {
			return err
		}
		if isQuit(email) {
			return errQuit
		}
		res, err := c.session.SelectContact(ctx, email, domain.Contact{})
		var vErr *app.ValidationError
		switch {
		case err == nil:
			fmt.Fprintln(c.out, "Contact found in system.")
			printContact(c.out, res.Contact)
			return nil
		case errors.As(err, &vErr) && len(vErr.Fields) == 4:
			fmt.Fprintln(c.out, "New contact. Please add info.")
			contact, err := c.askContact()
			if err != nil {
				return err
			}
			if _, err := c.session.SelectContact(ctx, email, contact); err != nil {
				fmt.Fprintln(c.out, userMessage(err))
				continue
			}
			fmt.Fprintln(c.out, "Contact saved successfully!")
			return nil
		default:
			fmt.Fprintln(c.out, userMessage(err))
		}
	}
}

func (c *chat) askContact() (domain.Contact, error) {
	var contact domain.Contact
	fields := []struct {
		label string
		dst   *string
	}{
		{"Contact's Full Name: ", &contact.Name},
		{"Contact's Phone Number: ", &contact.Phone},
		{"Company Name: ", &contact.Company},
		{"Industry: ", &contact.Industry},
	}
	for _, f := range fields {
		v, err := c.ask(f.label)
		if err != nil {
			return domain.Contact{}, err
		}
		*f.dst = v
	}
	return contact, nil
}

func (c *chat) clear(ctx context.Context) error {
	return c.session.ClearHistory(ctx)
}

func (c *chat) ask(label string) (string, error) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func isQuit(s string) bool {
	s = strings.ToLower(s)
	return s == "exit" || s == "quit"
}

func printContact(w io.Writer, contact domain.Contact) {
	fmt.Fprintf(w, "Name: %s\nPhone: %s\nCompany: %s\nIndustry: %s\n",
		contact.Name, contact.Phone, contact.Company, contact.Industry)
}

// userMessage turns an orchestrator error into operator-facing text.
func userMessage(err error) string {
	var vErr *app.ValidationError
	switch {
	case errors.Is(err, app.ErrAuth):
		return "Access denied. Invalid credentials."
	case errors.As(err, &vErr):
		return "Invalid input: " + vErr.Error()
	case errors.Is(err, app.ErrGeneration):
		return "Email generation failed, please try again."
	default:
		return "Error: " + err.Error()
	}
}
