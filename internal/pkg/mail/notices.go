package mail

import (
	"fmt"
	"strings"

	"github.com/smartcity/civicdash/app/models"
)

// ResolutionNotice tells the reporter their issue was resolved.
func ResolutionNotice(issue *models.Issue, reporter *models.Profile, dashboardURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", reporter.FullName)
	fmt.Fprintf(&b, "the issue you reported, %q, has been resolved by the %s department.\n", issue.Title, humanize(string(issue.AssignedDepartment)))
	if issue.ResolvedAt != nil {
		fmt.Fprintf(&b, "Resolved at: %s\n", issue.ResolvedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	writeLink(&b, dashboardURL, issue.ID)
	b.WriteString("\nThank you for helping improve the city.\n")
	return Message{
		To:      reporter.Email,
		Subject: "Your issue has been resolved: " + oneLine(issue.Title),
		Body:    b.String(),
	}
}

// AssignmentNotice tells a worker an issue was assigned to them.
func AssignmentNotice(issue *models.Issue, worker *models.Profile, dashboardURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", worker.FullName)
	fmt.Fprintf(&b, "you have been assigned the issue %q (priority %s).\n", issue.Title, issue.Priority)
	if issue.Address != "" {
		fmt.Fprintf(&b, "Location: %s\n", issue.Address)
	}
	writeLink(&b, dashboardURL, issue.ID)
	return Message{
		To:      worker.Email,
		Subject: "New assignment: " + oneLine(issue.Title),
		Body:    b.String(),
	}
}

func writeLink(b *strings.Builder, base, issueID string) {
	if base == "" {
		return
	}
	fmt.Fprintf(b, "Details: %s/issues/%s\n", strings.TrimRight(base, "/"), issueID)
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
