/*
Package jobs tracks background work (like the periodic pinger) so that it can be
canceled and waited on at shutdown.

A job's goroutine watches Canceled (or Ctx.Done) and calls Finish when it is done.
The owner calls Cancel, or CancelAndWait on a group of jobs.
*/
package jobs

import (
	"context"
	"time"

	"git.handmade.network/hmn/pgdsl/src/logging"
	"github.com/rs/zerolog"
)

type Job struct {
	Name string
	// Canceled when the job should stop. Carries Logger.
	Ctx    context.Context
	Logger zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(name string) *Job {
	logger := logging.With().Str("job", name).Logger()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.AttachLoggerToContext(&logger, ctx)
	return &Job{
		Name:   name,
		Ctx:    ctx,
		Logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// A job that is already finished, for callers that decided there was nothing to do.
func Noop(name string) *Job {
	return New(name).Finish()
}

// Asks the job to stop. Does not wait.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Canceled() <-chan struct{} {
	return j.Ctx.Done()
}

// Called by the job itself when its work is completely done. Call it exactly once.
func (j *Job) Finish() *Job {
	j.cancel()
	close(j.done)
	return j
}

func (j *Job) Finished() <-chan struct{} {
	return j.done
}

type Jobs []*Job

/*
Cancels every job and waits for all of them to finish, or for timeout to pass.
Returns the names of the jobs that had not finished by then.
*/
func (jobs Jobs) CancelAndWait(timeout time.Duration) []string {
	for _, job := range jobs {
		job.Cancel()
	}

	allDone := make(chan struct{})
	go func() {
		for _, job := range jobs {
			<-job.Finished()
		}
		close(allDone)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return jobs.ListUnfinished()
	case <-allDone:
		return nil
	}
}

func (jobs Jobs) ListUnfinished() []string {
	var unfinished []string
	for _, job := range jobs {
		select {
		case <-job.Finished():
		default:
			unfinished = append(unfinished, job.Name)
		}
	}
	return unfinished
}
