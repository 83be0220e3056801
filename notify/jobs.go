package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/shift-engine/compliance"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// JOB DEFINITIONS
// =============================================================================

const (
	JobDailyDigest      = "daily-digest"
	JobVacationNotice   = "vacation-notice"
	JobWeeklySummary    = "weekly-summary"
	JobWeeklyCompliance = "weekly-compliance"
)

// Snapshot is everything a job reads: the roster and one week of schedules.
type Snapshot struct {
	Users     []roster.User
	Week      shift.WeekID
	Schedules map[roster.UserID]shift.WeeklySchedule
}

// Job pairs the week a job reads with the function that builds its messages.
// Both receive the run's reference time in the scheduler's time zone.
type Job struct {
	Name  string
	Week  func(now time.Time) shift.WeekID
	Build func(snap Snapshot, now time.Time) []Message
}

// Jobs returns the four notification jobs.
func Jobs() []Job {
	return []Job{
		{
			Name:  JobDailyDigest,
			Week:  shift.WeekOf,
			Build: DailyDigest,
		},
		{
			Name: JobVacationNotice,
			Week: func(now time.Time) shift.WeekID { return shift.WeekOf(now.AddDate(0, 0, 1)) },
			Build: func(snap Snapshot, now time.Time) []Message {
				return VacationNotice(snap, now.AddDate(0, 0, 1), now)
			},
		},
		{
			Name:  JobWeeklySummary,
			Week:  nextWeek,
			Build: WeeklySummary,
		},
		{
			Name:  JobWeeklyCompliance,
			Week:  nextWeek,
			Build: WeeklyCompliance,
		},
	}
}

// Lookup finds a job by name.
func Lookup(name string) (Job, bool) {
	for _, j := range Jobs() {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

func nextWeek(now time.Time) shift.WeekID { return shift.WeekOf(now).Next() }

// =============================================================================
// DAILY DIGEST
// =============================================================================

// outOfOffice are the kinds listed as away in the daily digest.
var outOfOffice = map[shift.Kind]bool{
	shift.KindVacation:      true,
	shift.KindSickLeave:     true,
	shift.KindAccidentLeave: true,
	shift.KindLeave:         true,
	shift.KindOffSite:       true,
	shift.KindBrigade:       true,
}

// DailyDigest lists who is teleworking and who is out of office today. Users
// with no entry, or any other kind, are left out. One message goes to the
// whole roster; nothing is produced when both lists are empty.
func DailyDigest(snap Snapshot, today time.Time) []Message {
	slot := shift.SlotOf(today)

	var tele, away []string
	for _, u := range sortedByName(snap.Users) {
		e, ok := snap.Schedules[u.ID][slot]
		if !ok {
			continue
		}
		switch {
		case e.Kind == shift.KindTelework:
			tele = append(tele, fmt.Sprintf("- %s (%s)", nameOf(u), u.Department))
		case outOfOffice[e.Kind]:
			away = append(away, fmt.Sprintf("- %s (%s): %s", nameOf(u), u.Department, e.Kind))
		}
	}
	if len(tele) == 0 && len(away) == 0 {
		return nil
	}

	var b strings.Builder
	writeSection(&b, "Teleworking today:", tele)
	b.WriteString("\n")
	writeSection(&b, "Out of office today:", away)

	subject := fmt.Sprintf("Daily status for %s", dayLabel(today))
	return []Message{newMessage(JobDailyDigest, emails(snap.Users), subject, b.String(), today)}
}

// =============================================================================
// VACATION NOTICE
// =============================================================================

// VacationNotice warns each department about its members on vacation the
// given day. One message per affected department, addressed to all of that
// department's members.
func VacationNotice(snap Snapshot, day, now time.Time) []Message {
	slot := shift.SlotOf(day)

	onVacation := make(map[string][]string)
	for _, u := range sortedByName(snap.Users) {
		if e, ok := snap.Schedules[u.ID][slot]; ok && e.Kind == shift.KindVacation {
			onVacation[u.Department] = append(onVacation[u.Department], "- "+nameOf(u))
		}
	}

	var msgs []Message
	for _, dept := range sortedKeys(onVacation) {
		var members []roster.User
		for _, u := range snap.Users {
			if u.Department == dept {
				members = append(members, u)
			}
		}
		var b strings.Builder
		writeSection(&b, fmt.Sprintf("On vacation %s:", dayLabel(day)), onVacation[dept])
		subject := fmt.Sprintf("Vacation notice for %s: %s", dayLabel(day), dept)
		msgs = append(msgs, newMessage(JobVacationNotice, emails(members), subject, b.String(), now))
	}
	return msgs
}

// =============================================================================
// WEEKLY SUMMARY
// =============================================================================

// WeeklySummary lays out every user's Monday..Friday entries for the
// snapshot week, grouped by department in name order, as one message to the
// whole roster.
func WeeklySummary(snap Snapshot, now time.Time) []Message {
	byDept := make(map[string][]roster.User)
	for _, u := range sortedByName(snap.Users) {
		byDept[u.Department] = append(byDept[u.Department], u)
	}
	if len(byDept) == 0 {
		return nil
	}

	var b strings.Builder
	for i, dept := range sortedKeys(byDept) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "== %s ==\n", deptLabel(dept))
		for _, u := range byDept[dept] {
			fmt.Fprintf(&b, "%s\n", nameOf(u))
			week := snap.Schedules[u.ID]
			for slot := shift.Monday; slot <= shift.Friday; slot++ {
				entry := "-"
				if e, ok := week[slot]; ok {
					entry = e.String()
				}
				fmt.Fprintf(&b, "  %-9s %s\n", slot.String()+":", entry)
			}
		}
	}

	subject := fmt.Sprintf("Schedule for week %s", snap.Week)
	return []Message{newMessage(JobWeeklySummary, emails(snap.Users), subject, b.String(), now)}
}

// =============================================================================
// WEEKLY COMPLIANCE
// =============================================================================

// WeeklyCompliance checks every user's snapshot week and writes to each user
// with at least one violation. Users without an address are skipped.
func WeeklyCompliance(snap Snapshot, now time.Time) []Message {
	var msgs []Message
	for _, u := range snap.Users {
		issues := compliance.Issues(u, snap.Schedules[u.ID])
		if len(issues) == 0 || u.Email == "" {
			continue
		}
		lines := make([]string, len(issues))
		for i, v := range issues {
			lines[i] = "- " + v.Detail
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Hello %s,\n\n", nameOf(u))
		writeSection(&b, fmt.Sprintf("Your schedule for week %s breaks these rules:", snap.Week), lines)

		subject := fmt.Sprintf("Schedule compliance warning for week %s", snap.Week)
		msg := newMessage(JobWeeklyCompliance, []string{u.Email}, subject, b.String(), now)
		msg.Violations = issues
		msgs = append(msgs, msg)
	}
	return msgs
}

// =============================================================================
// HELPERS
// =============================================================================

func writeSection(b *strings.Builder, title string, lines []string) {
	b.WriteString(title)
	b.WriteString("\n")
	if len(lines) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
}

func nameOf(u roster.User) string {
	if n := u.DisplayName(); n != "" {
		return n
	}
	return string(u.ID)
}

func deptLabel(dept string) string {
	if dept == "" {
		return "No department"
	}
	return dept
}

func dayLabel(t time.Time) string {
	return t.Format("Monday 2006-01-02")
}

// emails returns the non-empty addresses of users, in order.
func emails(users []roster.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			out = append(out, u.Email)
		}
	}
	return out
}

// sortedByName returns a copy ordered by display name, then ID.
func sortedByName(users []roster.User) []roster.User {
	out := append([]roster.User(nil), users...)
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := nameOf(out[i]), nameOf(out[j])
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
