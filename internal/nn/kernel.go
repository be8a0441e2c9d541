package nn

import "math"

// Kernel supplies the arithmetic a Runner executes with, so the same
// program can run in floating point or 8-bit quantized form.
type Kernel[T Numeric] interface {
	// Zero is the encoding of 0.
	Zero() T
	// Dot returns sum(w[i]*x[i]) + bias over len(w) elements.
	Dot(w, x []T, bias T) T
	Add(a, b T) T
	Mul(a, b T) T
	ReLU(x T) T
	Sigmoid(x T) T
	Tanh(x T) T
}

// FloatKernel is plain float32 arithmetic.
type FloatKernel struct{}

func (FloatKernel) Zero() float32 { return 0 }

func (FloatKernel) Dot(w, x []float32, bias float32) float32 {
	sum := bias
	for i := range w {
		sum += w[i] * x[i]
	}
	return sum
}

func (FloatKernel) Add(a, b float32) float32 { return a + b }
func (FloatKernel) Mul(a, b float32) float32 { return a * b }

func (FloatKernel) ReLU(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

// Sigmoid is evaluated as e^x / (1 + e^x) without range reduction; inputs
// are expected to be bounded control-state features.
func (FloatKernel) Sigmoid(x float32) float32 {
	e := math.Exp(float64(x))
	return float32(e / (1 + e))
}

func (FloatKernel) Tanh(x float32) float32 {
	ep := math.Exp(float64(x))
	en := math.Exp(-float64(x))
	return float32((ep - en) / (ep + en))
}

// QuantKernel treats a byte q as the real value (q - ZeroPoint) * Scale.
// Products and activations are computed on the real values and
// requantized with saturation. ReLU clamps at Cutoff rather than at the
// zero point, so a cutoff above ZeroPoint doubles as a threshold.
type QuantKernel struct {
	ZeroPoint uint8
	Scale     float32
	Cutoff    uint8
}

// DefaultQuantKernel maps [0, 255] onto [-2, 2) with 128 as zero.
func DefaultQuantKernel() QuantKernel {
	return QuantKernel{ZeroPoint: 128, Scale: 1.0 / 64, Cutoff: 128}
}

func (k QuantKernel) scale() float32 {
	if k.Scale <= 0 {
		return 1.0 / 64
	}
	return k.Scale
}

func (k QuantKernel) Dequantize(q uint8) float32 {
	return (float32(q) - float32(k.ZeroPoint)) * k.scale()
}

func (k QuantKernel) Quantize(v float32) uint8 {
	q := math.Round(float64(v/k.scale())) + float64(k.ZeroPoint)
	switch {
	case math.IsNaN(q):
		return k.ZeroPoint
	case q < 0:
		return 0
	case q > 255:
		return 255
	}
	return uint8(q)
}

func (k QuantKernel) Zero() uint8 { return k.ZeroPoint }

func (k QuantKernel) Dot(w, x []uint8, bias uint8) uint8 {
	sum := k.Dequantize(bias)
	for i := range w {
		sum += k.Dequantize(w[i]) * k.Dequantize(x[i])
	}
	return k.Quantize(sum)
}

func (k QuantKernel) Add(a, b uint8) uint8 {
	return k.Quantize(k.Dequantize(a) + k.Dequantize(b))
}

func (k QuantKernel) Mul(a, b uint8) uint8 {
	return k.Quantize(k.Dequantize(a) * k.Dequantize(b))
}

func (k QuantKernel) ReLU(x uint8) uint8 {
	if x > k.Cutoff {
		return x
	}
	return k.Cutoff
}

func (k QuantKernel) Sigmoid(x uint8) uint8 {
	return k.Quantize(FloatKernel{}.Sigmoid(k.Dequantize(x)))
}

func (k QuantKernel) Tanh(x uint8) uint8 {
	return k.Quantize(FloatKernel{}.Tanh(k.Dequantize(x)))
}
