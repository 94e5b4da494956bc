package anomaly

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Autoencoder network shape: input D → 16 → 8 → 16 → output D.
// The 8-wide bottleneck forces a compressed representation of typical
// resource-usage patterns; records that do not compress well score high.
const (
	hiddenWidth     = 16
	bottleneckWidth = 8
)

// TrainConfig holds the optimization budget for one training run.
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
}

// DefaultTrainConfig mirrors the tuned reference settings.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       50,
		BatchSize:    32,
		LearningRate: 0.001,
		Seed:         1,
	}
}

// layer is one dense layer: out = act(W·in + b), weights indexed [out][in].
type layer struct {
	w    [][]float64
	b    []float64
	relu bool // ReLU for hidden layers, identity for the output layer
}

// Autoencoder is an immutable trained encoder/decoder. Build one with
// TrainAutoencoder; Predict never mutates it, so concurrent reads are safe.
type Autoencoder struct {
	layers []*layer
}

// TrainAutoencoder builds and fits the network by minibatch Adam on mean
// squared reconstruction error. ctx is checked once per epoch so a long run
// can be cancelled from an interactive caller. A non-finite loss aborts with
// a *TrainingError.
func TrainAutoencoder(ctx context.Context, corpus [][]float64, cfg TrainConfig) (*Autoencoder, error) {
	if len(corpus) == 0 {
		return nil, &TrainingError{Err: ErrInsufficientData}
	}
	if cfg.Epochs <= 0 || cfg.BatchSize <= 0 || cfg.LearningRate <= 0 {
		return nil, &TrainingError{Err: fmt.Errorf("invalid train config %+v", cfg)}
	}

	dim := len(corpus[0])
	rng := rand.New(rand.NewSource(cfg.Seed))

	net := &Autoencoder{layers: []*layer{
		newLayer(rng, dim, hiddenWidth, true),
		newLayer(rng, hiddenWidth, bottleneckWidth, true),
		newLayer(rng, bottleneckWidth, hiddenWidth, true),
		newLayer(rng, hiddenWidth, dim, false),
	}}

	opt := newAdam(net, cfg.LearningRate)
	order := make([]int, len(corpus))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var epochLoss float64
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batch := order[start:end]

			opt.zeroGrads()
			var batchLoss float64
			for _, idx := range batch {
				batchLoss += net.backprop(corpus[idx], opt)
			}
			opt.step(len(batch))
			epochLoss += batchLoss
		}

		epochLoss /= float64(len(order))
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return nil, &TrainingError{Err: fmt.Errorf("non-finite loss at epoch %d", epoch)}
		}
	}

	return net, nil
}

// Predict reconstructs each input vector; output has the same dimensionality.
func (a *Autoencoder) Predict(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		acts, _ := a.forward(row)
		out[i] = acts[len(acts)-1]
	}
	return out
}

// forward runs one sample through the network, returning the activation of
// every layer (acts[0] is the input) plus the pre-activations for backprop.
func (a *Autoencoder) forward(x []float64) (acts [][]float64, pres [][]float64) {
	acts = make([][]float64, len(a.layers)+1)
	pres = make([][]float64, len(a.layers))
	acts[0] = x

	for l, ly := range a.layers {
		in := acts[l]
		z := make([]float64, len(ly.b))
		for o := range ly.b {
			sum := ly.b[o]
			for i, v := range in {
				sum += ly.w[o][i] * v
			}
			z[o] = sum
		}
		pres[l] = z

		if ly.relu {
			out := make([]float64, len(z))
			for o, v := range z {
				if v > 0 {
					out[o] = v
				}
			}
			acts[l+1] = out
		} else {
			acts[l+1] = z
		}
	}
	return acts, pres
}

// backprop accumulates one sample's gradients into opt and returns its loss.
func (a *Autoencoder) backprop(x []float64, opt *adam) float64 {
	acts, pres := a.forward(x)
	out := acts[len(acts)-1]
	dim := float64(len(x))

	// dL/d(out) for L = mean((out - x)^2)
	delta := make([]float64, len(out))
	var loss float64
	for o := range out {
		diff := out[o] - x[o]
		loss += diff * diff
		delta[o] = 2 * diff / dim
	}
	loss /= dim

	for l := len(a.layers) - 1; l >= 0; l-- {
		ly := a.layers[l]
		if ly.relu {
			for o := range delta {
				if pres[l][o] <= 0 {
					delta[o] = 0
				}
			}
		}

		in := acts[l]
		g := opt.grads[l]
		for o := range ly.b {
			d := delta[o]
			g.b[o] += d
			for i, v := range in {
				g.w[o][i] += d * v
			}
		}

		if l > 0 {
			prev := make([]float64, len(in))
			for i := range prev {
				var sum float64
				for o := range delta {
					sum += ly.w[o][i] * delta[o]
				}
				prev[i] = sum
			}
			delta = prev
		}
	}
	return loss
}

// newLayer initializes weights with He scaling for ReLU layers and
// Glorot scaling for the linear output.
func newLayer(rng *rand.Rand, in, out int, relu bool) *layer {
	std := math.Sqrt(2 / float64(in))
	if !relu {
		std = math.Sqrt(2 / float64(in+out))
	}
	w := make([][]float64, out)
	for o := range w {
		w[o] = make([]float64, in)
		for i := range w[o] {
			w[o][i] = rng.NormFloat64() * std
		}
	}
	return &layer{w: w, b: make([]float64, out), relu: relu}
}

// ─── Adam optimizer ───────────────────────────────────────────────────────────

type layerGrads struct {
	w [][]float64
	b []float64
}

type adam struct {
	net   *Autoencoder
	lr    float64
	t     int
	grads []*layerGrads
	mw    []*layerGrads // first moments
	vw    []*layerGrads // second moments
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

func newAdam(net *Autoencoder, lr float64) *adam {
	mk := func() []*layerGrads {
		gs := make([]*layerGrads, len(net.layers))
		for l, ly := range net.layers {
			w := make([][]float64, len(ly.w))
			for o := range w {
				w[o] = make([]float64, len(ly.w[o]))
			}
			gs[l] = &layerGrads{w: w, b: make([]float64, len(ly.b))}
		}
		return gs
	}
	return &adam{net: net, lr: lr, grads: mk(), mw: mk(), vw: mk()}
}

func (a *adam) zeroGrads() {
	for _, g := range a.grads {
		for o := range g.w {
			for i := range g.w[o] {
				g.w[o][i] = 0
			}
			g.b[o] = 0
		}
	}
}

// step applies one Adam update using the gradients averaged over the batch.
func (a *adam) step(batchSize int) {
	a.t++
	inv := 1 / float64(batchSize)
	bc1 := 1 - math.Pow(adamBeta1, float64(a.t))
	bc2 := 1 - math.Pow(adamBeta2, float64(a.t))

	for l, ly := range a.net.layers {
		g, m, v := a.grads[l], a.mw[l], a.vw[l]
		for o := range ly.w {
			for i := range ly.w[o] {
				grad := g.w[o][i] * inv
				m.w[o][i] = adamBeta1*m.w[o][i] + (1-adamBeta1)*grad
				v.w[o][i] = adamBeta2*v.w[o][i] + (1-adamBeta2)*grad*grad
				ly.w[o][i] -= a.lr * (m.w[o][i] / bc1) / (math.Sqrt(v.w[o][i]/bc2) + adamEps)
			}
			grad := g.b[o] * inv
			m.b[o] = adamBeta1*m.b[o] + (1-adamBeta1)*grad
			v.b[o] = adamBeta2*v.b[o] + (1-adamBeta2)*grad*grad
			ly.b[o] -= a.lr * (m.b[o] / bc1) / (math.Sqrt(v.b[o]/bc2) + adamEps)
		}
	}
}
