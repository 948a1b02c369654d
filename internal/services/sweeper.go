package services

import (
	"context"
	"log"
	"time"
)

// Sweeper drives the periodic exam sweep. It runs on its own ticker,
// independent of any request path; Sweep itself swallows per-exam errors.
type Sweeper struct {
	exams    *ExamService
	interval time.Duration
	stopChan chan struct{}
}

func NewSweeper(exams *ExamService, interval time.Duration) *Sweeper {
	return &Sweeper{
		exams:    exams,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	if s.exams == nil {
		return
	}

	go s.loop()
	log.Printf("Exam sweeper started (interval %s)", s.interval)
}

func (s *Sweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *Sweeper) loop() {
	// Run once at startup as well as by interval.
	s.exams.Sweep(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.exams.Sweep(context.Background(), time.Now().UTC())
		}
	}
}
