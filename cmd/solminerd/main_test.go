package main

import (
	"context"
	"testing"

	"github.com/solminer/solminer/pkg/coordinator"
	"github.com/solminer/solminer/pkg/luxos"
)

// stubDevice records the mutating calls applyStartupPreset dispatches.
type stubDevice struct {
	profiles []string
	limits   []int
	curtails []float64
}

var _ coordinator.Device = (*stubDevice)(nil)

func okResponse() (luxos.Response, error) {
	return luxos.Response{"STATUS": []any{map[string]any{"STATUS": "S"}}}, nil
}

func (s *stubDevice) GetSummary(context.Context) (luxos.Response, error)   { return okResponse() }
func (s *stubDevice) GetStats(context.Context) (luxos.Response, error)     { return okResponse() }
func (s *stubDevice) GetDevs(context.Context) (luxos.Response, error)      { return okResponse() }
func (s *stubDevice) GetPools(context.Context) (luxos.Response, error)     { return okResponse() }
func (s *stubDevice) GetFrequency(context.Context) (luxos.Response, error) { return okResponse() }
func (s *stubDevice) GetProfile(context.Context) (luxos.Response, error)   { return okResponse() }
func (s *stubDevice) GetHealthChip(context.Context) (luxos.Response, error) {
	return okResponse()
}

func (s *stubDevice) Pause(context.Context) (luxos.Response, error)  { return okResponse() }
func (s *stubDevice) Resume(context.Context) (luxos.Response, error) { return okResponse() }
func (s *stubDevice) Reboot(context.Context) (luxos.Response, error) { return okResponse() }
func (s *stubDevice) EnableBoard(_ context.Context, _ int) (luxos.Response, error) {
	return okResponse()
}
func (s *stubDevice) DisableBoard(_ context.Context, _ int) (luxos.Response, error) {
	return okResponse()
}
func (s *stubDevice) SetFrequency(_ context.Context, _ int) (luxos.Response, error) {
	return okResponse()
}
func (s *stubDevice) SetProfile(_ context.Context, profile string) (luxos.Response, error) {
	s.profiles = append(s.profiles, profile)
	return okResponse()
}
func (s *stubDevice) SetPowerLimit(_ context.Context, watts int) (luxos.Response, error) {
	s.limits = append(s.limits, watts)
	return okResponse()
}
func (s *stubDevice) CurtailPower(_ context.Context, fraction float64) (luxos.Response, error) {
	s.curtails = append(s.curtails, fraction)
	return okResponse()
}
func (s *stubDevice) SetFanSpeed(_ context.Context, _ int) (luxos.Response, error) {
	return okResponse()
}

func (s *stubDevice) Close(context.Context) {}

func TestApplyStartupPreset(t *testing.T) {
	ctx := context.Background()

	t.Run("power mode as limit", func(t *testing.T) {
		dev := &stubDevice{}
		applyStartupPreset(ctx, coordinator.New(dev, coordinator.Config{}), "eco_mode")
		if len(dev.limits) != 1 || dev.limits[0] != 1500 {
			t.Errorf("limits = %v, want [1500]", dev.limits)
		}
		if len(dev.profiles) != 0 || len(dev.curtails) != 0 {
			t.Error("a wattage mode must only set a power limit")
		}
	})

	t.Run("power mode as curtailment", func(t *testing.T) {
		dev := &stubDevice{}
		applyStartupPreset(ctx, coordinator.New(dev, coordinator.Config{}), "night_30")
		if len(dev.curtails) != 1 || dev.curtails[0] != 0.3 {
			t.Errorf("curtails = %v, want [0.3]", dev.curtails)
		}
		if len(dev.limits) != 0 {
			t.Error("a fractional mode must not set a power limit")
		}
	})

	t.Run("friendly profile name", func(t *testing.T) {
		dev := &stubDevice{}
		applyStartupPreset(ctx, coordinator.New(dev, coordinator.Config{}), "balanced")
		if len(dev.profiles) != 1 || dev.profiles[0] != "0" {
			t.Errorf("profiles = %v, want [0]", dev.profiles)
		}
	})

	t.Run("raw profile step", func(t *testing.T) {
		dev := &stubDevice{}
		applyStartupPreset(ctx, coordinator.New(dev, coordinator.Config{}), "+2")
		if len(dev.profiles) != 1 || dev.profiles[0] != "+2" {
			t.Errorf("profiles = %v, want [+2]", dev.profiles)
		}
	})
}
