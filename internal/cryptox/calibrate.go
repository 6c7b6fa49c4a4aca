package cryptox

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/otpvault/internal/common"
)

type CalibrateOptions struct {
	// Target is the derivation time to reach. Zero means DefaultTarget.
	Target time.Duration
	// MaxIterations bounds the search. Zero means DefaultMaxIterations.
	MaxIterations int
}

type Calibration struct {
	Iterations int
	Duration   time.Duration
}

// CalibrateIterations searches for an iteration count whose derivation takes
// at least opts.Target on this device. The search starts at
// max(150000, 0.75*current) and grows by 25% per step up to MaxIterations.
// The service's iteration count is raised to the result, never lowered.
func (s *Service) CalibrateIterations(ctx context.Context, opts CalibrateOptions) (Calibration, error) {
	if s.provider == nil {
		return Calibration{}, common.ErrCryptoUnavailable
	}

	target := opts.Target
	if target <= 0 {
		target = DefaultTarget
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	salt, err := s.provider.RandomBytes(SaltSize)
	if err != nil {
		return Calibration{}, fmt.Errorf("generate salt: %w", err)
	}

	current := s.Iterations()
	test := max(minCalibrationIterations, int(math.Round(float64(current)*0.75)))
	test = min(test, maxIter)

	var elapsed time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return Calibration{}, err
		}

		start := s.now()
		key, err := s.provider.DeriveKey([]byte(calibrationPassword), salt, test, s.keyLength, s.hash)
		if err != nil {
			return Calibration{}, fmt.Errorf("derive key: %w", err)
		}
		common.WipeByteArray(key)
		elapsed = s.now().Sub(start)

		if elapsed >= target || test >= maxIter {
			break
		}
		test = min(maxIter, int(math.Round(float64(test)*1.25)))
	}

	s.mu.Lock()
	if test > s.iterations {
		s.iterations = test
	}
	result := s.iterations
	s.mu.Unlock()

	return Calibration{Iterations: result, Duration: elapsed}, nil
}
