package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

const unassignedLabel = "Unassigned"

// ReminderService builds human-readable overdue digests.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

// OverdueDigest renders the overdue tasks as of now, grouped by assignee.
// It returns an empty string when nothing is overdue.
func (s *ReminderService) OverdueDigest(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListOverdue(ctx, now)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}

	groups := make(map[string][]model.TaskWithAssignee)
	for _, task := range tasks {
		name := unassignedLabel
		if task.AssignedUserName != nil && strings.TrimSpace(*task.AssignedUserName) != "" {
			name = strings.TrimSpace(*task.AssignedUserName)
		}
		groups[name] = append(groups[name], task)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	// Unassigned goes last, everyone else alphabetically.
	sort.Slice(names, func(i, j int) bool {
		switch {
		case names[i] == unassignedLabel:
			return false
		case names[j] == unassignedLabel:
			return true
		default:
			return names[i] < names[j]
		}
	})

	var builder strings.Builder
	builder.WriteString("<b>Overdue tasks</b>\n")
	builder.WriteString(fmt.Sprintf("%s · %d total\n", now.Format(model.DateLayout), len(tasks)))

	for _, name := range names {
		builder.WriteString(fmt.Sprintf("\n<b>%s</b>\n", html.EscapeString(name)))
		for _, task := range groups[name] {
			builder.WriteString(formatOverdue(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatOverdue(task model.TaskWithAssignee, now time.Time) string {
	var sb strings.Builder

	title := html.EscapeString(strings.TrimSpace(task.Title))
	if title == "" {
		title = fmt.Sprintf("#%d", task.ID)
	}
	sb.WriteString(fmt.Sprintf("⚠️ %s", title))

	if task.Deadline != nil {
		due := time.Time(*task.Deadline)
		today := time.Time(model.DateOf(now))
		days := int(today.Sub(due).Hours() / 24)
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, %s late", due.Format(model.DateLayout), pluralDays(days)))
	}

	if status := strings.TrimSpace(task.Status); status != "" {
		sb.WriteString(fmt.Sprintf("\n   📌 %s", html.EscapeString(status)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
