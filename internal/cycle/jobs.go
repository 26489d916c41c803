package cycle

import "context"

// Job adapts one transition to the scheduler's Name/Run contract.
type Job struct {
	name string
	run  func(ctx context.Context) error
}

func (j Job) Name() string                  { return j.name }
func (j Job) Run(ctx context.Context) error { return j.run(ctx) }

// CreateJob, RevealJob and ResetJob drop the result structs; the service logs
// them already.
func (s *Service) CreateJob() Job {
	return Job{name: PhaseCreate, run: func(ctx context.Context) error {
		_, err := s.Create(ctx)
		return err
	}}
}

func (s *Service) RevealJob() Job {
	return Job{name: PhaseReveal, run: func(ctx context.Context) error {
		_, err := s.Reveal(ctx)
		return err
	}}
}

func (s *Service) ResetJob() Job {
	return Job{name: PhaseReset, run: func(ctx context.Context) error {
		_, err := s.Reset(ctx)
		return err
	}}
}
