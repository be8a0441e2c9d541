// Package policy maps vehicle state to actuator commands.
package policy

import (
	"fmt"

	"autopilot-ng/internal/nn"
)

const NumActuators = 16

// Input and output registers of a policy program.
const (
	RegRotation      nn.Reg = 0
	RegAltitudeError nn.Reg = 1
	RegSpeedError    nn.Reg = 2
	RegAction        nn.Reg = 3
)

// State is the observation fed to a policy. Rotation is a row-major 3x3
// body-to-world matrix.
type State struct {
	Rotation      [9]float32
	AltitudeError float32
	SpeedError    [2]float32
}

type Action struct {
	Actuators [NumActuators]float32
}

type Policy interface {
	ComputeAction(s *State, a *Action) error
	Reset()
}

// Builder returns a builder with the policy input registers declared.
func Builder() (*nn.Builder, error) {
	b := nn.NewBuilder(uint16(len(State{}.Rotation)))
	if err := b.DeclareInput(RegAltitudeError, 1); err != nil {
		return nil, fmt.Errorf("policy: altitude error input: %w", err)
	}
	if err := b.DeclareInput(RegSpeedError, uint16(len(State{}.SpeedError))); err != nil {
		return nil, fmt.Errorf("policy: speed error input: %w", err)
	}
	return b, nil
}

// BuildNet sizes and allocates a float network for src.
func BuildNet(src []byte) (*nn.Net[float32], error) {
	b, err := Builder()
	if err != nil {
		return nil, err
	}
	if err := nn.Exec(src, b); err != nil {
		return nil, fmt.Errorf("policy: build: %w", err)
	}
	return nn.Finish[float32](b)
}

// DDPG is a deterministic policy network: the program reads the state
// registers and leaves the action in register 3.
type DDPG struct {
	src    []byte
	runner *nn.Runner[float32]
}

// NewDDPG wraps a network built for src, typically by BuildNet.
func NewDDPG(net *nn.Net[float32], src []byte) *DDPG {
	return &DDPG{src: src, runner: nn.NewRunner[float32](net, nn.FloatKernel{})}
}

// Reset drops the activations of the previous pass. The weights are kept.
func (p *DDPG) Reset() {
	p.runner.Clear()
}

// ComputeAction runs the program for s. Actuators beyond the width of the
// action register are zeroed. On error a is left untouched.
func (p *DDPG) ComputeAction(s *State, a *Action) error {
	if err := p.runner.SetInput(RegRotation, s.Rotation[:]); err != nil {
		return fmt.Errorf("policy: rotation: %w", err)
	}
	if err := p.runner.SetInput(RegAltitudeError, []float32{s.AltitudeError}); err != nil {
		return fmt.Errorf("policy: altitude error: %w", err)
	}
	if err := p.runner.SetInput(RegSpeedError, s.SpeedError[:]); err != nil {
		return fmt.Errorf("policy: speed error: %w", err)
	}
	if err := p.runner.Run(p.src); err != nil {
		return fmt.Errorf("policy: run: %w", err)
	}
	out := p.runner.Output(RegAction)
	n := copy(a.Actuators[:], out)
	clear(a.Actuators[n:])
	return nil
}
