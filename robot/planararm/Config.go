package planararm

import (
	"fmt"
	"math"
)

// Config describes the physical parameters of a planar arm. The zero
// value is not usable; start from DefaultConfig and override fields as
// needed, or unmarshal YAML on top of it.
type Config struct {
	// NumLinks is the number of actuated links (= controlled joints)
	NumLinks int `yaml:"numLinks"`

	// LinkLengths holds the length of each link in meters. If empty,
	// every link is 0.3 m long.
	LinkLengths []float64 `yaml:"linkLengths"`

	// LinkMasses holds the mass of each link in kilograms. If empty,
	// every link weighs 2 kg.
	LinkMasses []float64 `yaml:"linkMasses"`

	// BaseMass is the mass of the fixed base the arm is mounted on
	BaseMass float64 `yaml:"baseMass"`

	// BaseHeight is the height of the arm's shoulder joint above the
	// world origin
	BaseHeight float64 `yaml:"baseHeight"`

	// PositionLimit bounds every joint angle to [-PositionLimit,
	// PositionLimit] radians
	PositionLimit float64 `yaml:"positionLimit"`

	// VelocityLimit bounds the magnitude of every joint velocity in
	// radians per second
	VelocityLimit float64 `yaml:"velocityLimit"`

	// EffortLimit is the maximum torque each joint actuator can
	// produce, in newton-meters
	EffortLimit float64 `yaml:"effortLimit"`

	// Damping is the viscous friction coefficient applied to joint
	// velocities
	Damping float64 `yaml:"damping"`

	// Gravity is the gravitational acceleration magnitude
	Gravity float64 `yaml:"gravity"`
}

// DefaultConfig returns the default physical parameters for an arm
// with numLinks links.
func DefaultConfig(numLinks int) Config {
	return Config{
		NumLinks:      numLinks,
		BaseMass:      40.0,
		BaseHeight:    1.2,
		PositionLimit: math.Pi,
		VelocityLimit: 4.0,
		EffortLimit:   80.0,
		Damping:       2.5,
		Gravity:       9.81,
	}
}

// Validate eagerly checks the configuration, filling defaulted link
// parameters in place.
func (c *Config) Validate() error {
	if c.NumLinks < 1 {
		return fmt.Errorf("config: numLinks must be positive, got %v",
			c.NumLinks)
	}
	if len(c.LinkLengths) == 0 {
		c.LinkLengths = repeat(0.3, c.NumLinks)
	}
	if len(c.LinkMasses) == 0 {
		c.LinkMasses = repeat(2.0, c.NumLinks)
	}
	if len(c.LinkLengths) != c.NumLinks {
		return fmt.Errorf("config: got %v link lengths for %v links",
			len(c.LinkLengths), c.NumLinks)
	}
	if len(c.LinkMasses) != c.NumLinks {
		return fmt.Errorf("config: got %v link masses for %v links",
			len(c.LinkMasses), c.NumLinks)
	}
	for i := 0; i < c.NumLinks; i++ {
		if c.LinkLengths[i] <= 0 {
			return fmt.Errorf("config: link %v has non-positive length", i)
		}
		if c.LinkMasses[i] <= 0 {
			return fmt.Errorf("config: link %v has non-positive mass", i)
		}
	}
	if c.BaseMass <= 0 {
		return fmt.Errorf("config: baseMass must be positive")
	}
	if c.PositionLimit <= 0 || c.VelocityLimit <= 0 || c.EffortLimit <= 0 {
		return fmt.Errorf("config: position, velocity, and effort limits " +
			"must be positive")
	}
	if c.Damping < 0 {
		return fmt.Errorf("config: damping must be non-negative")
	}
	return nil
}

func repeat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}
