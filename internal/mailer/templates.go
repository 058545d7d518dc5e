package mailer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/lctime"
	"github.com/onboarding-booking-api/internal/digest"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const dateFormat = "%A %d %B %Y"

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`<`, `\<`, `>`, `\>`, `#`, `\#`, `|`, `\|`,
)

// Renderer turns notifications into Markdown and HTML email bodies
type Renderer struct {
	locale string
	loc    *time.Location
	appURL string
	md     goldmark.Markdown
}

// NewRenderer creates a renderer formatting dates for locale in loc
func NewRenderer(locale string, loc *time.Location, appURL string) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{
		locale: locale,
		loc:    loc,
		appURL: strings.TrimRight(appURL, "/"),
		md: goldmark.New(
			goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
		),
	}
}

// Digest renders the digest for one recipient of plan
func (r *Renderer) Digest(plan digest.Plan, rcpt digest.Recipient, prefix string) (Message, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Hello %s,\n\n", escape(rcpt.Name))
	fmt.Fprintf(&b, "%s\n\n", r.digestIntro(plan))

	for _, g := range rcpt.Groups {
		fmt.Fprintf(&b, "## %s (%d)\n\n", escape(g.EntityName), len(g.Starters))
		for _, s := range g.Starters {
			fmt.Fprintf(&b, "- **%s**", escape(s.Name))
			if s.JobTitle != "" {
				fmt.Fprintf(&b, ", %s", escape(s.JobTitle))
			}
			if s.Department != "" {
				fmt.Fprintf(&b, " (%s)", escape(s.Department))
			}
			fmt.Fprintf(&b, ": %s\n", r.formatDate(s.StartDate))
		}
		b.WriteString("\n")
	}

	if r.appURL != "" {
		fmt.Fprintf(&b, "[Open the starter list](%s/starters)\n", r.appURL)
	}

	subject := fmt.Sprintf("%s %s digest: %d %s", prefix, titleCase(string(plan.Type)), rcpt.Count, plural(rcpt.Count, "starter", "starters"))
	return r.build([]string{rcpt.Email}, strings.TrimSpace(subject), b.String())
}

// StarterCreated renders the announcement of a new starter and their generated tasks
func (r *Renderer) StarterCreated(s *models.Starter, entityName string, tasks []*models.Task, to []string, prefix string) (Message, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s** starts on %s", escape(s.Name), r.formatDate(s.StartDate))
	if entityName != "" {
		fmt.Fprintf(&b, " at %s", escape(entityName))
	}
	b.WriteString(".\n\n")
	if s.JobTitle != "" {
		fmt.Fprintf(&b, "Position: %s\n\n", escape(s.JobTitle))
	}

	if len(tasks) > 0 {
		b.WriteString("## Onboarding tasks\n\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "- %s", escape(t.Title))
			if t.DueDate != nil {
				fmt.Fprintf(&b, " (due %s)", r.formatDate(*t.DueDate))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	r.starterLink(&b, s)

	subject := fmt.Sprintf("%s New starter: %s", prefix, s.Name)
	return r.build(to, strings.TrimSpace(subject), b.String())
}

// StarterCancelled renders the notice that a starter will not start
func (r *Renderer) StarterCancelled(s *models.Starter, entityName string, to []string, prefix string) (Message, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "The start of **%s** on %s", escape(s.Name), r.formatDate(s.StartDate))
	if entityName != "" {
		fmt.Fprintf(&b, " at %s", escape(entityName))
	}
	b.WriteString(" has been cancelled.\n\n")
	if s.CancelReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n\n", escape(s.CancelReason))
	}
	b.WriteString("Open onboarding tasks for this starter no longer need to be done.\n\n")
	r.starterLink(&b, s)

	subject := fmt.Sprintf("%s Starter cancelled: %s", prefix, s.Name)
	return r.build(to, strings.TrimSpace(subject), b.String())
}

func (r *Renderer) starterLink(b *strings.Builder, s *models.Starter) {
	if r.appURL != "" {
		fmt.Fprintf(b, "[View starter](%s/starters/%s)\n", r.appURL, s.ID)
	}
}

func (r *Renderer) digestIntro(plan digest.Plan) string {
	start := plan.Window.Start
	last := plan.Window.End.AddDate(0, 0, -1)

	switch plan.Type {
	case models.DigestWeekly:
		return fmt.Sprintf("These starters begin on %s:", r.formatDate(start))
	default:
		return fmt.Sprintf("These starters began between %s and %s:", r.formatDate(start), r.formatDate(last))
	}
}

func (r *Renderer) formatDate(t time.Time) string {
	t = t.In(r.loc)
	s, err := lctime.StrftimeLoc(r.locale, dateFormat, t)
	if err != nil {
		return t.Format("Monday 02 January 2006")
	}
	return s
}

func (r *Renderer) build(to []string, subject, markdown string) (Message, error) {
	var html bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &html); err != nil {
		return Message{}, fmt.Errorf("failed to render mail body: %w", err)
	}
	return Message{To: to, Subject: subject, Text: markdown, HTML: html.String()}, nil
}

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
