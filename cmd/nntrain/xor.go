package main

import (
	"fmt"

	"autopilot-ng/internal/nn"
	"autopilot-ng/internal/rng"
)

const xorProgram = "%2 = Linear 8 8 %0\n%3 = Sigmoid %2\n%4 = Linear 8 4 %3\n%1 = Sigmoid %4\n"

const (
	xorBits   = 4
	xorInput  = 2 * xorBits
	regIn     = nn.Reg(0)
	regOutput = nn.Reg(1)
)

// xorTask learns the bitwise XOR of two 4-bit operands.
type xorTask struct {
	src     []byte
	net     *nn.Net[float32]
	runner  *nn.Runner[float32]
	rng     *rng.Minstd
	samples int

	in       [xorInput]float32
	expected [xorBits]float32
}

func newXORTask(src []byte, seed uint32, samples int) (*xorTask, error) {
	net, err := nn.Build[float32](src, xorInput)
	if err != nil {
		return nil, err
	}
	if got := net.Layout().RegSizes[regOutput]; got != xorBits {
		return nil, fmt.Errorf("program writes %d values to %%1, want %d", got, xorBits)
	}
	if samples <= 0 {
		samples = 1
	}
	return &xorTask{
		src:     src,
		net:     net,
		runner:  nn.NewRunner[float32](net, nn.FloatKernel{}),
		rng:     rng.New(seed),
		samples: samples,
	}, nil
}

func bitsToFloat(bits int, out []float32) {
	for i := range out {
		out[i] = 0
		if bits&(1<<i) != 0 {
			out[i] = 1
		}
	}
}

func floatToBits(v []float32) int {
	bits := 0
	for i, f := range v {
		if f >= 0.5 {
			bits |= 1 << i
		}
	}
	return bits
}

func (x *xorTask) eval(a, b int) ([]float32, error) {
	bitsToFloat(a, x.in[:xorBits])
	bitsToFloat(b, x.in[xorBits:])
	if err := x.runner.SetInput(regIn, x.in[:]); err != nil {
		return nil, err
	}
	if err := x.runner.Run(x.src); err != nil {
		return nil, err
	}
	return x.runner.Output(regOutput), nil
}

// loss is the mean MSE over randomly drawn operand pairs, used as the
// optimizer's loss. A program error scores as hopelessly bad.
func (x *xorTask) loss(*nn.Net[float32]) float32 {
	var sum float32
	for i := 0; i < x.samples; i++ {
		a := x.rng.Intn(0, 1<<xorBits)
		b := x.rng.Intn(0, 1<<xorBits)
		out, err := x.eval(a, b)
		if err != nil {
			return float32(1e30)
		}
		bitsToFloat(a^b, x.expected[:])
		sum += nn.MSELoss(out, x.expected[:])
	}
	return sum / float32(x.samples)
}

// accuracy is the share of all 256 operand pairs answered exactly.
func (x *xorTask) accuracy() (float64, error) {
	right := 0
	for a := 0; a < 1<<xorBits; a++ {
		for b := 0; b < 1<<xorBits; b++ {
			out, err := x.eval(a, b)
			if err != nil {
				return 0, err
			}
			if floatToBits(out) == a^b {
				right++
			}
		}
	}
	return float64(right) / float64(1<<(2*xorBits)), nil
}

func (x *xorTask) randomize() {
	x.net.Randomize(func() float32 { return x.rng.Float(-1, 1) })
}
