package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/storage"
	"github.com/sandeepkv93/dusk/internal/summary"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, title, body string) delivery.Result
}

type Recorder interface {
	ObserveCheck(source string, reason Reason)
	ObserveFire(source string, channel delivery.Channel)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCheck(string, Reason) {}
func (nopRecorder) ObserveFire(string, delivery.Channel) {}

type Fire struct {
	Date   string
	Title  string
	Body   string
	Tasks  []model.Task
	Result delivery.Result
}

func compose(ctx context.Context, tasks storage.TaskSource, now time.Time, logger *log.Logger) Fire {
	var list []model.Task
	if tasks != nil {
		var err error
		list, err = tasks.ListTasks(ctx)
		if err != nil {
			logger.Warn("tasks unreadable, firing with empty summary", "err", err)
			list = nil
		}
	}
	today := model.DateString(now)
	return Fire{
		Date:  today,
		Title: summary.Title,
		Body:  summary.Summarize(list, today),
		Tasks: list,
	}
}
