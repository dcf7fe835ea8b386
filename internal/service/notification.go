package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const notificationSubjectPrefix = "[Disaster Recovery] "

// buildNotification renders the message for one plan event.
// result is a *domain.RestoreResult for success, an error for failure and a *domain.TestRecord for test.
func buildNotification(plan *domain.RecoveryPlan, typ domain.NotificationType, result any, now time.Time) *domain.Notification {
	n := &domain.Notification{
		Type:      typ,
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Timestamp: now,
	}

	switch typ {
	case domain.NotificationSuccess:
		n.Message = fmt.Sprintf("Recovery plan %q executed successfully", plan.Name)
		if r, ok := result.(*domain.RestoreResult); ok && r != nil {
			n.Result = r
			n.Message += fmt.Sprintf(", restored %d collection(s) from %s", len(r.Collections), r.BackupID)
		}
	case domain.NotificationFailure:
		n.Message = fmt.Sprintf("Recovery plan %q failed", plan.Name)
		if err, ok := result.(error); ok && err != nil {
			n.Error = err.Error()
			n.Message += ": " + n.Error
		}
	case domain.NotificationTest:
		n.Message = fmt.Sprintf("Recovery plan %q test finished", plan.Name)
		if r, ok := result.(*domain.TestRecord); ok && r != nil {
			n.TestResult = r
			n.Message = fmt.Sprintf("Recovery plan %q test %s", plan.Name, r.Status)
			if r.Details != nil && r.Details.BackupExists {
				n.Message += fmt.Sprintf(", backup %s (%s)", plan.BackupID, humanize.IBytes(uint64(r.Details.BackupSize)))
			}
			if r.Error != "" {
				n.Error = r.Error
				n.Message += ": " + r.Error
			}
		}
	}
	return n
}

// notificationBody is the plain text email body
func notificationBody(n *domain.Notification) string {
	var b strings.Builder
	b.WriteString(n.Message)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Plan: %s (%s)\n", n.PlanName, n.PlanID)
	fmt.Fprintf(&b, "Type: %s\n", n.Type)
	fmt.Fprintf(&b, "Time: %s\n", n.Timestamp.Format(time.RFC3339))
	if n.Result != nil {
		fmt.Fprintf(&b, "Backup: %s\nMode: %s\nCollections: %s\n", n.Result.BackupID, n.Result.Mode, strings.Join(n.Result.Collections, ", "))
	}
	if n.TestResult != nil {
		fmt.Fprintf(&b, "Validate only: %t\n", n.TestResult.ValidateOnly)
	}
	if n.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", n.Error)
	}
	return b.String()
}

// dispatchNotification sends n to every configured target concurrently.
// Every target is attempted, the first delivery error is returned.
// dispatchNotification 并发投递到所有通知目标，返回第一个错误
func dispatchNotification(ctx context.Context, sink domain.NotificationSink, targets *domain.PlanNotifications, n *domain.Notification, log *zap.Logger) error {
	if sink == nil || targets.Empty() {
		return nil
	}

	var g errgroup.Group
	subject := notificationSubjectPrefix + n.Message
	body := notificationBody(n)

	for _, to := range targets.Email {
		to := to
		g.Go(func() error {
			if err := sink.SendEmail(ctx, to, subject, body); err != nil {
				log.Warn("send recovery email failed", zap.String(logger.FieldTarget, to), zap.Error(err))
				return err
			}
			return nil
		})
	}
	if targets.Webhook != "" {
		url := targets.Webhook
		g.Go(func() error {
			if err := sink.SendWebhook(ctx, url, n); err != nil {
				log.Warn("send recovery webhook failed", zap.String(logger.FieldTarget, url), zap.Error(err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
