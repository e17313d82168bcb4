package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Network is the in-process forward pass of the recurrent controller.
type Network struct {
	w *Weights
}

// NewNetwork wraps loaded weights in an executable network.
func NewNetwork(w *Weights) *Network {
	return &Network{w: w}
}

// Forward runs the GRU over a (seqLen × inputDim) input matrix and returns
// the normalized (steer, speed) pair: steer in [-1, 1] via tanh, speed in
// [0, 1] via sigmoid, matching the ranges the controller was trained on.
func (n *Network) Forward(x *mat.Dense) (steer, speed float64, err error) {
	rows, cols := x.Dims()
	if rows != n.w.SeqLen || cols != n.w.InputDim() {
		return 0, 0, fmt.Errorf("input shape (%d, %d), model expects (%d, %d)",
			rows, cols, n.w.SeqLen, n.w.InputDim())
	}

	h := mat.NewVecDense(n.w.Hidden, nil)
	var z, r, cand, tmp mat.VecDense

	for t := 0; t < rows; t++ {
		xt := x.RowView(t)

		// Update gate: z = σ(Wz·x + Uz·h + bz)
		z.MulVec(n.w.Wz, xt)
		tmp.MulVec(n.w.Uz, h)
		z.AddVec(&z, &tmp)
		z.AddVec(&z, n.w.Bz)
		applyVec(&z, sigmoid)

		// Reset gate: r = σ(Wr·x + Ur·h + br)
		r.MulVec(n.w.Wr, xt)
		tmp.MulVec(n.w.Ur, h)
		r.AddVec(&r, &tmp)
		r.AddVec(&r, n.w.Br)
		applyVec(&r, sigmoid)

		// Candidate state: c = tanh(Wh·x + Uh·(r∘h) + bh)
		tmp.MulElemVec(&r, h)
		cand.MulVec(n.w.Uh, &tmp)
		tmp.MulVec(n.w.Wh, xt)
		cand.AddVec(&cand, &tmp)
		cand.AddVec(&cand, n.w.Bh)
		applyVec(&cand, math.Tanh)

		// h = (1-z)∘h + z∘c
		for i := 0; i < n.w.Hidden; i++ {
			zi := z.AtVec(i)
			h.SetVec(i, (1-zi)*h.AtVec(i)+zi*cand.AtVec(i))
		}
	}

	var out mat.VecDense
	out.MulVec(n.w.Wout, h)
	out.AddVec(&out, n.w.Bout)

	steer = math.Tanh(out.AtVec(0))
	speed = sigmoid(out.AtVec(1))
	return steer, speed, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func applyVec(v *mat.VecDense, f func(float64) float64) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, f(v.AtVec(i)))
	}
}
