package services

import (
	"remindbot/internal/app/deps"
	drl "remindbot/internal/core/domain/rate_limiter"
	"remindbot/internal/core/services"
	"remindbot/internal/core/services/attachments"
	completereminder "remindbot/internal/core/services/complete_reminder"
	"remindbot/internal/core/services/conversation"
	deletereminder "remindbot/internal/core/services/delete_reminder"
	listuserreminders "remindbot/internal/core/services/list_user_reminders"
	ratelimiting "remindbot/internal/core/services/rate_limiting"
	scanreminders "remindbot/internal/core/services/scan_reminders"
	sendreminder "remindbot/internal/core/services/send_reminder"
	"remindbot/internal/http/handlers/telegram"
)

type Services struct {
	Attachments  attachments.Manager
	Conversation conversation.Machine

	ListUserReminders services.Service[listuserreminders.Input, listuserreminders.Result]
	CompleteReminder  services.Service[completereminder.Input, completereminder.Result]
	DeleteReminder    services.Service[deletereminder.Input, deletereminder.Result]
	AdvanceReminder   services.Service[sendreminder.Input, sendreminder.Result]
	SendReminder      services.Service[sendreminder.Input, sendreminder.Result]
	ScanReminders     services.Service[scanreminders.Input, scanreminders.Result]

	HandleUpdate services.Service[telegram.Input, telegram.Result]
}

func InitServices(deps *deps.Deps) *Services {
	s := &Services{}
	location := deps.Config.Location

	s.Attachments = attachments.New(
		deps.Logger,
		deps.UnitOfWork,
		deps.BlobStorage,
		deps.Config.BlobTimeout,
		deps.Now,
	)
	s.Conversation = conversation.New(
		deps.Logger,
		deps.UnitOfWork,
		deps.SessionRepository,
		deps.Notifier,
		s.Attachments,
		location,
		deps.Now,
	)

	s.ListUserReminders = listuserreminders.New(deps.Logger, deps.UnitOfWork)
	s.CompleteReminder = completereminder.New(deps.Logger, deps.UnitOfWork)
	s.DeleteReminder = deletereminder.New(deps.Logger, deps.UnitOfWork, s.Attachments)

	s.AdvanceReminder = sendreminder.NewAdvanceService(
		deps.Logger,
		deps.UnitOfWork,
		s.Attachments,
		location,
		deps.Now,
	)
	s.SendReminder = sendreminder.NewSendService(
		deps.Logger,
		deps.UnitOfWork,
		deps.Notifier,
		s.Attachments,
		deps.Config.DeliveryTimeout,
		s.AdvanceReminder,
	)
	s.ScanReminders = scanreminders.New(
		deps.Logger,
		deps.UnitOfWork,
		s.SendReminder,
		deps.Config.RemindersScanWorkers,
		deps.Now,
	)

	s.HandleUpdate = ratelimiting.WithRateLimiting[telegram.Input, telegram.Result](
		deps.Logger,
		deps.RateLimiter,
		drl.Limit{Value: deps.Config.UpdatesPerMinuteLimit, Interval: drl.Minute},
		telegram.NewDispatcher(
			deps.Logger,
			deps.Telegram,
			s.Conversation,
			s.ListUserReminders,
			s.CompleteReminder,
			s.DeleteReminder,
			s.Attachments,
			location,
		),
	)

	return s
}
