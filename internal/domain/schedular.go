package domain

import "context"

type Schedular interface {
	Start(ctx context.Context) error

	AddTask(task *Task) error
	RemoveTask(name string) error
}
