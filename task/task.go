package task

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/opsdesk/eventbus/core"
)

type Job struct {
	Name            string                // name of the job.
	Cron            string                // cron expr.
	CronWithSeconds bool                  // whether cron expr contains the second field.
	Run             func(core.Rail) error // actual job execution logic.
	LogJobExec      bool                  // whether job execution should be logged, error msg is always logged and is not affected by this option.
}

// Locker guards a job so that only one process in the cluster runs it at a time.
type Locker interface {
	// Run f only if the lock is obtained, false is returned if the lock is held by others.
	TryLockRun(rail core.Rail, key string, f func() error) (bool, error)
}

// Scheduler runs cron jobs, jobs with the same name never overlap within the process.
type Scheduler struct {
	s      *gocron.Scheduler
	locker Locker
}

// Create scheduler, locker is optional.
func NewScheduler(locker Locker) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	return &Scheduler{s: s, locker: locker}
}

func (s *Scheduler) ScheduleCron(job Job) error {
	var err error
	wrapped := func() { s.run(core.EmptyRail(), job) }

	if job.CronWithSeconds {
		_, err = s.s.CronWithSeconds(job.Cron).Tag(job.Name).Do(wrapped)
	} else {
		_, err = s.s.Cron(job.Cron).Tag(job.Name).Do(wrapped)
	}
	if err != nil {
		return core.WrapErrf(err, "failed to schedule cron job, cron: %v, withSeconds: %v", job.Cron, job.CronWithSeconds)
	}
	return nil
}

func (s *Scheduler) run(rail core.Rail, job Job) {
	if job.LogJobExec {
		rail.Infof("Running job '%s'", job.Name)
	}

	start := time.Now()
	ran := true
	var err error
	if s.locker != nil {
		ran, err = s.locker.TryLockRun(rail, "task:"+job.Name, func() error { return job.Run(rail) })
	} else {
		err = job.Run(rail)
	}
	took := time.Since(start)

	if err != nil {
		rail.Errorf("Job '%s' failed, took: %s, %v", job.Name, took, err)
		return
	}
	if !ran {
		rail.Debugf("Job '%s' is running on another node, skipped", job.Name)
		return
	}
	if job.LogJobExec {
		rail.Infof("Job '%s' finished, took: %s", job.Name, took)
	}
}

func (s *Scheduler) Len() int {
	return s.s.Len()
}

// Start scheduler asynchronously.
func (s *Scheduler) Start(rail core.Rail) {
	s.s.StartAsync()
	for _, j := range s.s.Jobs() {
		rail.Infof("Job %v next run scheduled at: %v", j.Tags(), j.NextRun())
	}
	rail.Info("Cron Scheduler started")
}

func (s *Scheduler) Stop() {
	s.s.Stop()
}
