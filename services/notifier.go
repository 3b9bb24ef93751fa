package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"proteinwatch/models"

	"github.com/jordan-wright/email"
)

// EmailNotifier mails the per-run warning report to the operators.
type EmailNotifier struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

func NewEmailNotifier(host string, port int, user, password, from string, to []string) *EmailNotifier {
	return &EmailNotifier{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
	}
}

func (n *EmailNotifier) configured() bool {
	return n.host != "" && n.from != "" && len(n.to) > 0
}

// SendWarningReport mails the batch report. Runs without warnings and
// unconfigured SMTP are both silent no-ops.
func (n *EmailNotifier) SendWarningReport(report *models.BatchReport) error {
	if !n.configured() {
		log.Println("SMTP not configured, skipping warning report")
		return nil
	}
	if len(report.Warnings) == 0 {
		log.Println("no warnings this run, skipping warning report")
		return nil
	}

	msg := email.NewEmail()
	msg.From = n.from
	msg.To = n.to
	msg.Subject = fmt.Sprintf("Scrape report: %d products need attention", len(report.Warnings))
	msg.HTML = []byte(renderWarningReport(report))

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.password, n.host)
	}
	if err := msg.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send warning report: %v", err)
	}
	log.Printf("warning report sent to %s", strings.Join(n.to, ", "))
	return nil
}

func renderWarningReport(report *models.BatchReport) string {
	var b strings.Builder
	b.WriteString("<h2>Scrape run finished</h2>")
	b.WriteString(fmt.Sprintf("<p>Started %s, finished %s.</p>",
		report.StartedAt.Format("15:04:05"), report.FinishedAt.Format("15:04:05")))
	if !report.Published {
		b.WriteString("<p><strong>Feed was NOT republished this run.</strong></p>")
	}
	b.WriteString(fmt.Sprintf("<p>%d of %d products have a warning:</p>", len(report.Warnings), len(report.Outcomes)))
	b.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>Product</th><th>Clicks</th><th>Dashboard</th></tr>")
	for _, w := range report.Warnings {
		b.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%d</td><td><a href=\"%s\">edit</a></td></tr>",
			w.Name, w.Severity, w.URL))
	}
	b.WriteString("</table>")
	return b.String()
}
