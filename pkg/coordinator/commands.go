package coordinator

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/solminer/solminer/pkg/luxos"
)

// command runs one mutating device operation under the cycle lock. All
// control operations present a uniform boolean contract: protocol failures
// are logged, never propagated. Success requests an immediate out-of-band
// refresh so consumers observe the new device state promptly.
func (c *Coordinator) command(ctx context.Context, name string, op func(context.Context) (luxos.Response, error)) bool {
	c.mu.Lock()
	_, err := op(ctx)
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Errorf("failed to %s", name)
		return false
	}
	c.RequestRefresh()
	return true
}

// PauseMining pauses all mining operations.
func (c *Coordinator) PauseMining(ctx context.Context) bool {
	return c.command(ctx, "pause mining", c.device.Pause)
}

// ResumeMining resumes mining operations.
func (c *Coordinator) ResumeMining(ctx context.Context) bool {
	return c.command(ctx, "resume mining", c.device.Resume)
}

// SetPowerProfile applies a power profile.
func (c *Coordinator) SetPowerProfile(ctx context.Context, profile string) bool {
	return c.command(ctx, "set power profile", func(ctx context.Context) (luxos.Response, error) {
		return c.device.SetProfile(ctx, profile)
	})
}

// SetPowerLimit sets the power limit in watts.
func (c *Coordinator) SetPowerLimit(ctx context.Context, watts int) bool {
	return c.command(ctx, "set power limit", func(ctx context.Context) (luxos.Response, error) {
		return c.device.SetPowerLimit(ctx, watts)
	})
}

// SetFrequency sets the chip frequency in MHz.
func (c *Coordinator) SetFrequency(ctx context.Context, frequency int) bool {
	return c.command(ctx, "set frequency", func(ctx context.Context) (luxos.Response, error) {
		return c.device.SetFrequency(ctx, frequency)
	})
}

// SetFanSpeed sets the fan speed in RPM.
func (c *Coordinator) SetFanSpeed(ctx context.Context, rpm int) bool {
	return c.command(ctx, "set fan speed", func(ctx context.Context) (luxos.Response, error) {
		return c.device.SetFanSpeed(ctx, rpm)
	})
}

// CurtailPower curtails power draw to the given fraction of normal.
func (c *Coordinator) CurtailPower(ctx context.Context, fraction float64) bool {
	return c.command(ctx, "curtail power", func(ctx context.Context) (luxos.Response, error) {
		return c.device.CurtailPower(ctx, fraction)
	})
}

// EnableBoard enables a hashboard.
func (c *Coordinator) EnableBoard(ctx context.Context, boardID int) bool {
	return c.command(ctx, "enable board", func(ctx context.Context) (luxos.Response, error) {
		return c.device.EnableBoard(ctx, boardID)
	})
}

// DisableBoard disables a hashboard.
func (c *Coordinator) DisableBoard(ctx context.Context, boardID int) bool {
	return c.command(ctx, "disable board", func(ctx context.Context) (luxos.Response, error) {
		return c.device.DisableBoard(ctx, boardID)
	})
}

// RebootMiner reboots the device. Unlike other commands it requests no
// refresh: the device is expected to become unreachable.
func (c *Coordinator) RebootMiner(ctx context.Context) bool {
	c.mu.Lock()
	_, err := c.device.Reboot(ctx)
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("failed to reboot miner")
		return false
	}
	return true
}

// EmergencyStop pauses mining, then curtails power to zero, in that order.
// There is no single device primitive for this; the sequence succeeds only
// when both steps do, and requests a refresh only then.
func (c *Coordinator) EmergencyStop(ctx context.Context) bool {
	c.mu.Lock()
	_, err := c.device.Pause(ctx)
	if err == nil {
		_, err = c.device.CurtailPower(ctx, 0)
	}
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("emergency stop failed")
		return false
	}
	c.RequestRefresh()
	return true
}

// SetSolarPowerInput sets the manual solar power value in watts.
func (c *Coordinator) SetSolarPowerInput(power float64) {
	c.mu.Lock()
	c.solar.PowerInput = power
	c.mu.Unlock()
	c.RequestRefresh()
}

// SetSolarCurveEnabled toggles the simulated daylight curve.
func (c *Coordinator) SetSolarCurveEnabled(enabled bool) {
	c.mu.Lock()
	c.solar.CurveEnabled = enabled
	c.mu.Unlock()
	c.RequestRefresh()
}

// SetMaxSolarPower sets the curve's peak output in watts.
func (c *Coordinator) SetMaxSolarPower(power float64) {
	c.mu.Lock()
	c.solar.MaxCurvePower = power
	c.mu.Unlock()
	c.RequestRefresh()
}
