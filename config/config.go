// Package config defines the configuration of a reach study and how it is read from disk.
package config

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/reach/optimizer"
	"go.viam.com/reach/registry"
	"go.viam.com/reach/spatialmath"
)

const defaultProgressInterval = time.Second

// Default plugins used when a config leaves the side channels out.
const (
	DefaultDisplay = "noop"
	DefaultLogger  = "console"
)

// Config describes a reach study.
type Config struct {
	Optimization        optimizer.Parameters `json:"optimization"`
	IKSolver            *PluginConfig        `json:"ik_solver"`
	Evaluator           *PluginConfig        `json:"evaluator"`
	TargetPoseGenerator *PluginConfig        `json:"target_pose_generator"`
	Display             *PluginConfig        `json:"display,omitempty"`
	Logger              *PluginConfig        `json:"logger,omitempty"`

	// Workers bounds concurrent pose evaluations. Zero means one per CPU.
	Workers int `json:"workers,omitempty"`
	// ProgressInterval is the minimum time between progress reports, as a Go duration string.
	ProgressInterval string `json:"progress_interval,omitempty"`
	// BaseFrame is the initial robot base pose in the study frame.
	BaseFrame *BaseFrame `json:"base_frame,omitempty"`
	// PluginSearchPath lists the directories relative plugin files are resolved against. Relative
	// entries are relative to the config file.
	PluginSearchPath []string `json:"plugin_search_path,omitempty"`

	ConfigFilePath string `json:"-"`

	progressInterval time.Duration
}

// PluginConfig selects a plugin by name and carries its attributes.
type PluginConfig struct {
	Name       string              `json:"name"`
	Attributes registry.Attributes `json:"attributes,omitempty"`
}

// Validate ensures the plugin is named.
func (p *PluginConfig) Validate(path string) error {
	if p.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	return nil
}

// BaseFrame is a position with a rotation about Z in degrees.
type BaseFrame struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	YawDegs float64 `json:"yaw_degs"`
}

// Pose returns the frame as a pose.
func (b BaseFrame) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromPointYaw(r3.Vector{X: b.X, Y: b.Y, Z: b.Z}, b.YawDegs*math.Pi/180)
}

// Ensure validates the config and fills defaults. Every problem found is reported.
func (c *Config) Ensure() error {
	var errs error
	for _, section := range []struct {
		path string
		cfg  *PluginConfig
	}{
		{"ik_solver", c.IKSolver},
		{"evaluator", c.Evaluator},
		{"target_pose_generator", c.TargetPoseGenerator},
	} {
		if section.cfg == nil {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", section.path))
			continue
		}
		errs = multierr.Append(errs, section.cfg.Validate(section.path))
	}
	if c.Display == nil {
		c.Display = &PluginConfig{Name: DefaultDisplay}
	}
	errs = multierr.Append(errs, c.Display.Validate("display"))
	if c.Logger == nil {
		c.Logger = &PluginConfig{Name: DefaultLogger}
	}
	errs = multierr.Append(errs, c.Logger.Validate("logger"))

	if err := c.Optimization.Validate(); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError("optimization", err))
	}

	if c.Workers < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("workers",
			errors.Errorf("cannot be negative, got %d", c.Workers)))
	}

	c.progressInterval = defaultProgressInterval
	if c.ProgressInterval != "" {
		interval, err := time.ParseDuration(c.ProgressInterval)
		switch {
		case err != nil:
			errs = multierr.Append(errs, utils.NewConfigValidationError("progress_interval", err))
		case interval < 0:
			errs = multierr.Append(errs, utils.NewConfigValidationError("progress_interval",
				errors.Errorf("cannot be negative, got %s", interval)))
		default:
			c.progressInterval = interval
		}
	}

	if c.BaseFrame != nil && !c.BaseFrame.Pose().IsFinite() {
		errs = multierr.Append(errs, utils.NewConfigValidationError("base_frame", errors.New("must be finite")))
	}
	return errs
}

// WorkerCount returns the number of evaluation workers to use.
func (c *Config) WorkerCount() int {
	if c.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// ProgressEvery returns the parsed progress interval. It is only meaningful after Ensure.
func (c *Config) ProgressEvery() time.Duration {
	return c.progressInterval
}

// BaseOffset returns the initial study frame offset, the identity when unset.
func (c *Config) BaseOffset() spatialmath.Pose {
	if c.BaseFrame == nil {
		return spatialmath.Identity()
	}
	return c.BaseFrame.Pose()
}

func (c *Config) String() string {
	name := func(p *PluginConfig) string {
		if p == nil {
			return "<unset>"
		}
		return p.Name
	}
	return fmt.Sprintf("ik_solver=%s evaluator=%s target_pose_generator=%s display=%s logger=%s",
		name(c.IKSolver), name(c.Evaluator), name(c.TargetPoseGenerator), name(c.Display), name(c.Logger))
}
