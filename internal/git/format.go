package git

import (
	"fmt"
	"strings"
	"time"
)

// FormatCommitHeader renders a commit the way git show prints its header.
func FormatCommitHeader(c Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "commit %s\n", c.ID)
	if len(c.Parents) > 1 {
		short := make([]string, len(c.Parents))
		for i, p := range c.Parents {
			short[i] = shortID(p)
		}
		fmt.Fprintf(&b, "Merge: %s\n", strings.Join(short, " "))
	}
	appendSignatureLine(&b, "Author", c.AuthorName, c.AuthorEmail, time.Time{})
	committerName, committerEmail := c.CommitterName, c.CommitterEmail
	if committerName == "" && committerEmail == "" {
		committerName, committerEmail = c.AuthorName, c.AuthorEmail
	}
	appendSignatureLine(&b, "Committer", committerName, committerEmail, c.Time())
	b.WriteString("\n")
	message := strings.TrimRight(c.Message, "\n")
	if message == "" {
		b.WriteString("    (no commit message)\n")
		return b.String()
	}
	for line := range strings.SplitSeq(message, "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "    %s\n", line)
	}
	return b.String()
}

func appendSignatureLine(b *strings.Builder, label, name, email string, when time.Time) {
	fmt.Fprintf(b, "%s: %s <%s>", label, name, email)
	if !when.IsZero() && !when.Equal(time.UnixMilli(0).UTC()) {
		fmt.Fprintf(b, "  %s", when.Format("2006-01-02 15:04:05 -0700"))
	}
	b.WriteByte('\n')
}

// FormatSummary renders a commit as one log line. Titles longer than 80
// characters are cut on a rune boundary.
func FormatSummary(c Commit) string {
	title := strings.TrimSpace(c.Title)
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:77]) + "..."
	}
	return fmt.Sprintf("%s  %s  %s  %s", shortID(c.ID), c.Time().Format("2006-01-02 15:04"), c.AuthorName, title)
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
