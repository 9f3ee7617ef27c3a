package worker

import "github.com/hibiken/asynq"

// Task types registered on the asynq mux. Both are periodic sweeps
// without payloads; state lives in Postgres, not in the task.
const (
	TypeExpirePending         = "booking:expire_pending"
	TypeDispatchNotifications = "notification:dispatch"
)

func NewExpirePendingTask() *asynq.Task {
	return asynq.NewTask(TypeExpirePending, nil)
}

func NewDispatchNotificationsTask() *asynq.Task {
	return asynq.NewTask(TypeDispatchNotifications, nil)
}
