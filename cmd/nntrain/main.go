package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autopilot-ng/internal/metrics"
	"autopilot-ng/internal/nn"
	"autopilot-ng/internal/optim"
	"autopilot-ng/internal/policy"
)

func main() {
	var (
		programPath string
		policyPath  string
		iterations  int
		samples     int
		batch       int
		noise       float64
		penalty     float64
		seed        uint
		logEvery    int
		metricsAddr string
	)
	flag.StringVar(&programPath, "program", "", "Path to a network program (default: built-in XOR net)")
	flag.StringVar(&policyPath, "policy", "", "Evaluate a policy program with random weights and exit")
	flag.IntVar(&iterations, "iterations", 5000, "Optimizer steps")
	flag.IntVar(&samples, "samples", 64, "Operand pairs per loss evaluation")
	flag.IntVar(&batch, "batch", 4, "Parameters perturbed per step")
	flag.Float64Var(&noise, "noise", 0.0625, "Perturbation half-width")
	flag.Float64Var(&penalty, "penalty", 0, "Added to the best loss after every step")
	flag.UintVar(&seed, "seed", 1, "Random seed")
	flag.IntVar(&logEvery, "log-every", 500, "Log progress every N steps")
	flag.StringVar(&metricsAddr, "metrics", "", "Serve /metrics on this address while training")
	flag.Parse()

	if policyPath != "" {
		evalPolicy(policyPath, uint32(seed))
		return
	}

	src := []byte(xorProgram)
	if programPath != "" {
		b, err := os.ReadFile(programPath)
		if err != nil {
			log.Fatalf("program load failed: %v", err)
		}
		src = b
	}
	text, err := nn.Format(src)
	if err != nil {
		log.Fatalf("program parse failed: %v", err)
	}

	task, err := newXORTask(src, uint32(seed), samples)
	if err != nil {
		log.Fatalf("net build failed: %v", err)
	}
	defer task.net.Release()
	log.Printf("nntrain program:\n%s", text)
	log.Printf("net parameters=%d", task.net.Layout().NumParameters)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var m *metrics.Metrics
	if metricsAddr != "" {
		m = metrics.New()
		srv := &http.Server{Addr: metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		defer srv.Close()
	}

	best, err := train(ctx, task, optim.Options{
		BatchSize: batch,
		NoiseMin:  -float32(noise),
		NoiseMax:  float32(noise),
		Penalty:   float32(penalty),
	}, iterations, logEvery, m)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	acc, err := task.accuracy()
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	log.Printf("done best_loss=%.5f accuracy=%.3f", best, acc)
}

func evalPolicy(path string, seed uint32) {
	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("policy load failed: %v", err)
	}
	text, err := nn.Format(src)
	if err != nil {
		log.Fatalf("policy parse failed: %v", err)
	}
	c, err := newPolicyCheck(src, seed)
	if err != nil {
		log.Fatalf("policy build failed: %v", err)
	}
	defer c.net.Release()
	log.Printf("policy program:\n%s", text)
	log.Printf("policy parameters=%d", c.net.Layout().NumParameters)

	a, err := c.run(levelState())
	if err != nil {
		log.Fatalf("policy evaluation failed: %v", err)
	}
	w := int(c.net.Layout().RegSizes[policy.RegAction])
	log.Printf("policy level action=%v", a.Actuators[:w])
}

// train randomizes the weights and runs the optimizer until iterations
// steps have run or ctx is cancelled. It returns the best loss.
func train(ctx context.Context, task *xorTask, opts optim.Options, iterations, logEvery int, m *metrics.Metrics) (float32, error) {
	task.randomize()
	o := optim.New(task.net, opts)
	if err := o.AllocMemory(); err != nil {
		return 0, err
	}
	defer o.ReleaseMemory()

	for i := 1; i <= iterations; i++ {
		if ctx.Err() != nil {
			log.Printf("training interrupted step=%d", i)
			break
		}
		l, err := o.Step(task.rng, task.loss)
		if err != nil {
			return 0, err
		}
		m.OptimStep(o.LastAccepted(), o.BestLoss())
		if logEvery > 0 && i%logEvery == 0 {
			s := o.Stats()
			log.Printf("step=%d loss=%.5f best=%.5f accepted=%d", i, l, o.BestLoss(), s.Accepted)
		}
	}
	return o.BestLoss(), nil
}
