package notify

import (
	"fmt"
	"strings"

	"campus-sentinel/internal/alerts"
)

func assignmentSubject(a alerts.Alert) string {
	prefix := "ALERT"
	switch a.Severity {
	case alerts.SeverityCritical:
		prefix = "CRITICAL ALERT"
	case alerts.SeverityHigh:
		prefix = "HIGH PRIORITY"
	case alerts.SeverityLow:
		prefix = "Notice"
	}
	return prefix + ": " + a.Title
}

func assignmentBody(a alerts.Alert) string {
	building := orUnknown(a.Location.Building)
	zone := orUnknown(a.Location.ZoneID)

	return fmt.Sprintf(`You have been assigned to respond to an alert.

Alert: %s
Severity: %s
Location: %s, Zone %s
Time: %s

Description:
%s

Please acknowledge this alert and respond immediately.
`,
		a.Title,
		strings.ToUpper(string(a.Severity)),
		building,
		zone,
		a.CreatedAt.Format("2006-01-02 15:04:05"),
		a.Description,
	)
}

func assignmentSMSBody(a alerts.Alert) string {
	zone := orUnknown(a.Location.ZoneID)
	return fmt.Sprintf("SENTINEL ALERT [%s]: %s. Location: %s. Respond immediately.",
		strings.ToUpper(string(a.Severity)), a.Title, zone)
}

func escalationSubject(a alerts.Alert) string {
	return "ESCALATED: " + a.Title
}

func escalationBody(a alerts.Alert, reason string) string {
	building := orUnknown(a.Location.Building)
	zone := orUnknown(a.Location.ZoneID)

	return fmt.Sprintf(`ESCALATED ALERT - Immediate Response Required

Alert: %s
Severity: %s
Location: %s, Zone %s
Escalation Reason: %s
Escalation Count: %d

Description:
%s

This alert has been escalated to you. Please respond immediately.
`,
		a.Title,
		strings.ToUpper(string(a.Severity)),
		building,
		zone,
		reason,
		a.EscalationCount,
		a.Description,
	)
}

func escalationSMSBody(a alerts.Alert, reason string) string {
	return fmt.Sprintf("ESCALATED ALERT: %s. %s. Immediate response required.", a.Title, reason)
}

// truncate shortens push bodies; push payloads have tight size limits.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
