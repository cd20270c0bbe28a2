// Package model implements the product-sales regression model: a small
// feed-forward network trained on encoded sales features, plus the artifact
// bundle it is persisted as.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/features"
	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/sales"
)

var (
	// ErrNotTrained is returned by Predict and Save before Train or Load.
	ErrNotTrained = errors.New("model not trained")
	// ErrArtifactNotFound is returned by Load when a bundle file is missing.
	ErrArtifactNotFound = errors.New("model artifact not found")
)

// flatConfidence is reported when there is no sales history to compare to.
const flatConfidence = 50.0

// TrainOptions controls a training run.
type TrainOptions struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	TestSplit       float64
	Seed            int64
	LearningRate    float64

	// Early stopping on validation loss.
	Patience int

	// Learning-rate reduction on plateau.
	LRPatience int
	LRFactor   float64
	MinLR      float64

	OnEpoch func(EpochStats)
}

// DefaultTrainOptions returns the standard training configuration.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:          50,
		BatchSize:       32,
		ValidationSplit: 0.2,
		TestSplit:       0.2,
		Seed:            42,
		LearningRate:    0.001,
		Patience:        10,
		LRPatience:      5,
		LRFactor:        0.2,
		MinLR:           1e-4,
	}
}

// EpochStats are the metrics of one epoch.
type EpochStats struct {
	Epoch        int     `json:"epoch"`
	Loss         float64 `json:"loss"`
	MAE          float64 `json:"mae"`
	ValLoss      float64 `json:"val_loss"`
	ValMAE       float64 `json:"val_mae"`
	LearningRate float64 `json:"lr"`
}

// History summarizes a training run.
type History struct {
	Epochs       []EpochStats  `json:"epochs"`
	BestEpoch    int           `json:"best_epoch"`
	StoppedEarly bool          `json:"stopped_early"`
	TrainRows    int           `json:"train_rows"`
	ValRows      int           `json:"val_rows"`
	TestRows     int           `json:"test_rows"`
	TestLoss     float64       `json:"test_loss"`
	TestMAE      float64       `json:"test_mae"`
	TestMSE      float64       `json:"test_mse"`
	Features     []string      `json:"features"`
	Duration     time.Duration `json:"duration"`
}

// Prediction is the forecast for one input row.
type Prediction struct {
	Record     sales.Record
	Units      int64
	Confidence float64
}

// Model is the trained regression model with its preprocessing state.
type Model struct {
	net     *Network
	scaler  *features.Scaler
	encoder *features.Encoder
	logger  *observability.Logger
}

// New creates an untrained model.
func New(logger *observability.Logger) *Model {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Model{
		encoder: features.NewEncoder(logger),
		logger:  logger.WithComponent("model"),
	}
}

// Trained reports whether the model can predict.
func (m *Model) Trained() bool {
	return m.net != nil && m.scaler != nil
}

// Space returns the feature space the model was trained on.
func (m *Model) Space() features.Space {
	return m.encoder.Space
}

// Train fits the model on ds. The scaler is fitted on the training split
// only; the hold-out test split is scored once at the end.
func (m *Model) Train(ctx context.Context, ds sales.Dataset, opts TrainOptions) (*History, error) {
	start := time.Now()
	opts = withDefaults(opts)

	X, y, err := m.encoder.Prepare(ds, true)
	if err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	if len(X) < 2 {
		return nil, fmt.Errorf("need at least 2 rows to train, got %d", len(X))
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	trainIdx, testIdx := splitIndices(len(X), opts.TestSplit, rng)

	m.scaler = features.FitScaler(pick(X, trainIdx))
	Xs, err := m.scaler.Transform(X)
	if err != nil {
		return nil, err
	}

	// The validation rows are the tail of the training split.
	cut := int(float64(len(trainIdx)) * (1 - opts.ValidationSplit))
	if cut < 1 {
		cut = len(trainIdx)
	}
	fitIdx, valIdx := trainIdx[:cut], trainIdx[cut:]

	hist := &History{
		TrainRows: len(fitIdx),
		ValRows:   len(valIdx),
		TestRows:  len(testIdx),
		Features:  append([]string(nil), m.encoder.Space...),
	}

	m.logger.Info().
		Int("train_rows", hist.TrainRows).
		Int("val_rows", hist.ValRows).
		Int("test_rows", hist.TestRows).
		Int("features", len(hist.Features)).
		Msg("training started")

	net := newNetwork(Xs.Cols(), rng)
	opt := newAdam(net)
	grads := newGradients(net)

	lr := opts.LearningRate
	best := math.Inf(1)
	bestNet := net.clone()
	wait, lrWait := 0, 0
	lrBest := math.Inf(1)

	order := append([]int(nil), fitIdx...)
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var lossSum, maeSum float64
		for b := 0; b < len(order); b += opts.BatchSize {
			end := b + opts.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batch := order[b:end]
			n := float64(len(batch))

			grads.reset()
			for _, i := range batch {
				out, tr := net.forwardTrain(Xs[i], rng)
				diff := out - y[i]
				lossSum += diff * diff
				maeSum += math.Abs(diff)
				net.backward(tr, 2*diff/n, grads)
			}
			opt.apply(net, grads, lr)
		}

		stats := EpochStats{
			Epoch:        epoch,
			Loss:         lossSum / float64(len(order)),
			MAE:          maeSum / float64(len(order)),
			LearningRate: lr,
		}
		monitor := stats.Loss
		if len(valIdx) > 0 {
			stats.ValLoss, stats.ValMAE = evaluate(net, Xs, y, valIdx)
			monitor = stats.ValLoss
		}
		hist.Epochs = append(hist.Epochs, stats)
		if opts.OnEpoch != nil {
			opts.OnEpoch(stats)
		}

		m.logger.Debug().
			Int("epoch", epoch).
			Float64("loss", stats.Loss).
			Float64("val_loss", stats.ValLoss).
			Float64("lr", lr).
			Msg("epoch finished")

		if monitor < best {
			best, wait = monitor, 0
			bestNet = net.clone()
			hist.BestEpoch = epoch
		} else {
			wait++
			if wait >= opts.Patience {
				hist.StoppedEarly = true
				m.logger.Info().Int("epoch", epoch).Int("best_epoch", hist.BestEpoch).Msg("early stopping")
				break
			}
		}

		if monitor < lrBest-1e-4 {
			lrBest, lrWait = monitor, 0
		} else {
			lrWait++
			if lrWait >= opts.LRPatience && lr > opts.MinLR {
				lr = math.Max(lr*opts.LRFactor, opts.MinLR)
				lrWait = 0
				m.logger.Debug().Float64("lr", lr).Msg("reduced learning rate")
			}
		}
	}

	m.net = bestNet

	if len(testIdx) > 0 {
		hist.TestMSE, hist.TestMAE = evaluate(m.net, Xs, y, testIdx)
		hist.TestLoss = hist.TestMSE
	}
	hist.Duration = time.Since(start)

	m.logger.Info().
		Int("epochs", len(hist.Epochs)).
		Int("best_epoch", hist.BestEpoch).
		Float64("test_loss", hist.TestLoss).
		Float64("test_mae", hist.TestMAE).
		Dur("duration", hist.Duration).
		Msg("training complete")

	return hist, nil
}

// Predict forecasts units for every row of ds, in input order. Outputs are
// clipped at zero and rounded. Confidence is the row's share of the largest
// historical sales in ds, capped at 100.
func (m *Model) Predict(ds sales.Dataset) ([]Prediction, error) {
	if !m.Trained() {
		return nil, ErrNotTrained
	}

	X, _, err := m.encoder.Prepare(ds, false)
	if err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	Xs, err := m.scaler.Transform(X)
	if err != nil {
		return nil, err
	}

	var maxHist int64
	for _, r := range ds.Records {
		if r.UnitsSold > maxHist {
			maxHist = r.UnitsSold
		}
	}

	out := make([]Prediction, len(ds.Records))
	for i, r := range ds.Records {
		units := math.Round(math.Max(0, m.net.Predict(Xs[i])))
		out[i] = Prediction{
			Record:     r,
			Units:      int64(units),
			Confidence: Confidence(r.UnitsSold, maxHist),
		}
	}

	m.logger.Debug().Int("rows", len(out)).Msg("predictions generated")
	return out, nil
}

// Confidence is min(100, 100*hist/peak) rounded to two decimals, or 50 when
// peak is 0.
func Confidence(hist, peak int64) float64 {
	if peak <= 0 {
		return flatConfidence
	}
	c := math.Min(100, 100*float64(hist)/float64(peak))
	return math.Round(c*100) / 100
}

func withDefaults(o TrainOptions) TrainOptions {
	d := DefaultTrainOptions()
	if o.Epochs <= 0 {
		o.Epochs = d.Epochs
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.ValidationSplit < 0 || o.ValidationSplit >= 1 {
		o.ValidationSplit = d.ValidationSplit
	}
	if o.TestSplit < 0 || o.TestSplit >= 1 {
		o.TestSplit = d.TestSplit
	}
	if o.LearningRate <= 0 {
		o.LearningRate = d.LearningRate
	}
	if o.Patience <= 0 {
		o.Patience = d.Patience
	}
	if o.LRPatience <= 0 {
		o.LRPatience = d.LRPatience
	}
	if o.LRFactor <= 0 || o.LRFactor >= 1 {
		o.LRFactor = d.LRFactor
	}
	if o.MinLR <= 0 {
		o.MinLR = d.MinLR
	}
	return o
}

// splitIndices shuffles 0..n-1 and holds out ceil(frac*n) rows for testing,
// always leaving at least one training row.
func splitIndices(n int, frac float64, rng *rand.Rand) (train, test []int) {
	perm := rng.Perm(n)
	nTest := int(math.Ceil(frac * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}

func pick(X features.Matrix, idx []int) features.Matrix {
	out := make(features.Matrix, len(idx))
	for k, i := range idx {
		out[k] = X[i]
	}
	return out
}

// evaluate returns MSE and MAE of net over the given rows.
func evaluate(net *Network, X features.Matrix, y []float64, idx []int) (mse, mae float64) {
	for _, i := range idx {
		diff := net.Predict(X[i]) - y[i]
		mse += diff * diff
		mae += math.Abs(diff)
	}
	n := float64(len(idx))
	return mse / n, mae / n
}
