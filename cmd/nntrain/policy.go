package main

import (
	"fmt"

	"autopilot-ng/internal/nn"
	"autopilot-ng/internal/policy"
	"autopilot-ng/internal/rng"
)

// policyCheck builds a policy program with random weights and evaluates it
// on a level vehicle holding altitude and speed.
type policyCheck struct {
	net    *nn.Net[float32]
	policy *policy.DDPG
}

func newPolicyCheck(src []byte, seed uint32) (*policyCheck, error) {
	net, err := policy.BuildNet(src)
	if err != nil {
		return nil, err
	}
	if w := net.Layout().RegSizes[policy.RegAction]; w == 0 || w > policy.NumActuators {
		net.Release()
		return nil, fmt.Errorf("program writes %d values to %%%d, want 1..%d", w, policy.RegAction, policy.NumActuators)
	}
	r := rng.New(seed)
	net.Randomize(func() float32 { return r.Float(-1, 1) })
	return &policyCheck{net: net, policy: policy.NewDDPG(net, src)}, nil
}

// run evaluates s twice with a Reset in between and fails when the two
// actions differ.
func (c *policyCheck) run(s *policy.State) (policy.Action, error) {
	var first, second policy.Action
	if err := c.policy.ComputeAction(s, &first); err != nil {
		return first, err
	}
	c.policy.Reset()
	if err := c.policy.ComputeAction(s, &second); err != nil {
		return first, err
	}
	if first != second {
		return first, fmt.Errorf("policy is not deterministic: %v then %v", first.Actuators, second.Actuators)
	}
	return first, nil
}

func levelState() *policy.State {
	var s policy.State
	s.Rotation[0], s.Rotation[4], s.Rotation[8] = 1, 1, 1
	return &s
}
