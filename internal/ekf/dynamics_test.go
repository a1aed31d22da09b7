package ekf_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/ekf"
	"github.com/san-kum/orbitekf/internal/force"
	"github.com/san-kum/orbitekf/internal/stm"
)

const (
	earthMu     = 398600.4418
	earthRadius = 6378.137
	earthJ2     = 1.08262668e-3
)

// fixedModel contributes constant accelerations and a fixed partial table.
type fixedModel struct {
	name     string
	accel    [3]float64
	partials map[string]float64
	calls    int
}

func (m *fixedModel) Name() string { return m.name }

func (m *fixedModel) Acceleration(accel []float64, _ dynamo.State) error {
	for k := range accel {
		accel[k] += m.accel[k]
	}
	return nil
}

func (m *fixedModel) Partials(partials []float64, _ dynamo.State, agents []string) error {
	m.calls++
	n := len(agents)
	for i := range agents {
		for j := range agents {
			partials[i*n+j] += m.partials["d"+agents[i]+" wrt "+agents[j]]
		}
	}
	return nil
}

var errBroken = errors.New("broken model")

// brokenModel fails its partials after a successful acceleration.
type brokenModel struct{}

func (brokenModel) Name() string                                       { return "broken" }
func (brokenModel) Acceleration(accel []float64, _ dynamo.State) error { return nil }
func (brokenModel) Partials([]float64, dynamo.State, []string) error {
	return errBroken
}

func leoState(n int) dynamo.State {
	return stm.NewState([3]float64{6000, 2500, 1800}, [3]float64{-2.1, 6.4, 3.3}, n)
}

var _ = Describe("Dynamics", func() {
	var xyz = []string{"X", "Y", "Z"}

	Describe("acceleration", func() {
		It("matches two-body motion for a point-mass body", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, 0)
			d := ekf.New([]force.Model{earth}, []string{"X"})

			for _, pos := range [][3]float64{{7000, 0, 0}, {-3000, 4000, 5000}, {100, -9000, 250}} {
				x := stm.NewState(pos, [3]float64{1, 2, 3}, 1)
				dxdt, err := d.Evaluate(x, 0)
				Expect(err).NotTo(HaveOccurred())

				r := math.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
				for k := 0; k < 3; k++ {
					Expect(dxdt[3+k]).To(BeNumerically("~", -earthMu*pos[k]/(r*r*r), 1e-15))
				}
			}
		})

		It("does not depend on model registration order", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			moon := force.NewThirdBody("moon", 4902.800066, [3]float64{384400, 0, 0})
			x := leoState(3)

			d1, err := ekf.New([]force.Model{earth, moon}, xyz).Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			d2, err := ekf.New([]force.Model{moon, earth}, xyz).Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())

			for i := range d1 {
				Expect(d2[i]).To(BeNumerically("~", d1[i], 1e-18+1e-14*math.Abs(d1[i])))
			}
		})

		It("is zero with no models registered", func() {
			d := ekf.New(nil, nil)
			x := dynamo.State{7000, 0, 0, 0, 7.5, 0}

			dxdt, err := d.Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(dxdt).To(Equal(dynamo.State{0, 7.5, 0, 0, 0, 0}))
			Expect(d.StateDim()).To(Equal(6))
		})
	})

	Describe("velocity pass-through", func() {
		It("copies state[3:6] into derivative[0:3] exactly", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			d := ekf.New([]force.Model{earth}, xyz)
			x := leoState(3)
			x[3], x[4], x[5] = 0.1+0.2, -1.0/3.0, math.Pi

			dxdt, err := d.Evaluate(x, 12.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(dxdt[0:3]).To(Equal(x[3:6]))
		})
	})

	Describe("STM derivative", func() {
		var model *fixedModel

		BeforeEach(func() {
			model = &fixedModel{
				name: "fixed",
				partials: map[string]float64{
					"da wrt a": 1, "da wrt b": 2,
					"db wrt a": 3, "db wrt b": 4,
				},
			}
		})

		It("writes A·STM in row-major order", func() {
			d := ekf.New([]force.Model{model}, []string{"a", "b"})
			x := dynamo.State{7000, 0, 0, 0, 7.5, 0, 1, 0, 0, 1}

			dxdt, err := d.Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect([]float64(dxdt[6:10])).To(Equal([]float64{1, 2, 3, 4}))
		})

		It("uses a true matrix product, not an elementwise one", func() {
			d := ekf.New([]force.Model{model}, []string{"a", "b"})
			// STM = [[0,1],[1,0]] swaps the columns of A
			x := dynamo.State{7000, 0, 0, 0, 7.5, 0, 0, 1, 1, 0}

			dxdt, err := d.Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect([]float64(dxdt[6:10])).To(Equal([]float64{2, 1, 4, 3}))
		})

		It("sums partials from independent models", func() {
			other := &fixedModel{name: "other", partials: map[string]float64{"db wrt b": 10}}
			d := ekf.New([]force.Model{model, other}, []string{"a", "b"})
			x := dynamo.State{7000, 0, 0, 0, 7.5, 0, 1, 0, 0, 1}

			dxdt, err := d.Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect([]float64(dxdt[6:10])).To(Equal([]float64{1, 2, 3, 14}))
		})

		It("leaves entries no model implements at zero", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			agents := []string{"X", "Y", "Z", "dX", "dY", "dZ"}
			d := ekf.New([]force.Model{earth}, agents)
			x := leoState(len(agents))

			dxdt, err := d.Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())

			// STM = I, so dSTM = A: only the position block can be non-zero
			n := len(agents)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					v := dxdt[stm.Offset+j+i*n]
					if i < 3 && j < 3 {
						Expect(v).NotTo(BeZero())
					} else {
						Expect(v).To(BeZero(), "entry (%d,%d)", i, j)
					}
				}
			}
		})

		It("matches order-swapped models", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			moon := force.NewThirdBody("moon", 4902.800066, [3]float64{384400, 0, 0})
			x := leoState(3)
			copy(stm.Block(x, 3), []float64{1, 0.5, 0, 0, 1, 0.25, 0.1, 0, 1})

			d1, err := ekf.New([]force.Model{earth, moon}, xyz).Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			d2, err := ekf.New([]force.Model{moon, earth}, xyz).Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())

			for i := stm.Offset; i < len(d1); i++ {
				Expect(d2[i]).To(BeNumerically("~", d1[i], 1e-20+1e-12*math.Abs(d1[i])))
			}
		})
	})

	Describe("layout validation", func() {
		It("rejects a state whose STM block does not match the agents", func() {
			d := ekf.New([]force.Model{&fixedModel{name: "fixed"}}, []string{"a", "b"})

			Expect(d.Validate(stm.StateLen(3))).To(MatchError(dynamo.ErrLayoutMismatch))
			Expect(d.Validate(7)).To(MatchError(dynamo.ErrLayoutMismatch))
			Expect(d.Validate(stm.StateLen(2))).To(Succeed())
		})

		It("rejects duplicate agents", func() {
			d := ekf.New(nil, []string{"X", "X"})
			Expect(d.Validate(stm.StateLen(2))).To(MatchError(dynamo.ErrLayoutMismatch))
		})

		It("fails before calling any model", func() {
			model := &fixedModel{name: "fixed"}
			d := ekf.New([]force.Model{model}, []string{"a", "b"})
			x := make(dynamo.State, stm.StateLen(3))
			dxdt := make(dynamo.State, len(x))

			err := d.Derive(x, dxdt, 0)
			Expect(err).To(MatchError(dynamo.ErrLayoutMismatch))
			Expect(model.calls).To(BeZero())
		})

		It("rejects a derivative buffer of the wrong length", func() {
			d := ekf.New(nil, nil)
			err := d.Derive(dynamo.State{1, 0, 0, 0, 0, 0}, make(dynamo.State, 5), 0)
			Expect(err).To(MatchError(dynamo.ErrLayoutMismatch))
		})
	})

	Describe("failures", func() {
		It("propagates a model error without writing the derivative", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			d := ekf.New([]force.Model{earth, brokenModel{}}, xyz)
			x := leoState(3)

			dxdt := make(dynamo.State, len(x))
			for i := range dxdt {
				dxdt[i] = -1
			}
			err := d.Derive(x, dxdt, 0)
			Expect(err).To(MatchError(errBroken))
			for _, v := range dxdt {
				Expect(v).To(Equal(-1.0))
			}
		})

		It("surfaces a position at the origin", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			d := ekf.New([]force.Model{earth}, xyz)

			_, err := d.Evaluate(stm.NewState([3]float64{}, [3]float64{}, 3), 0)
			Expect(err).To(MatchError(dynamo.ErrSingularPosition))
		})
	})

	Describe("purity", func() {
		It("returns the same derivative for repeated calls at different times", func() {
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			d := ekf.New([]force.Model{earth}, xyz)
			x := leoState(3)
			before := x.Clone()

			d1, err := d.Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			d2, err := d.Evaluate(x, 3600)
			Expect(err).NotTo(HaveOccurred())

			Expect(d2).To(Equal(d1))
			Expect(x).To(Equal(before))
		})
	})

	Describe("diagnostics", func() {
		It("reports A, STM and dSTM without changing the result", func() {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			earth := force.NewGravity("earth", earthRadius, earthMu, earthJ2)
			x := leoState(3)

			plain, err := ekf.New([]force.Model{earth}, xyz).Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())
			traced, err := ekf.New([]force.Model{earth}, xyz, ekf.WithDiagnostics(logger)).Evaluate(x, 0)
			Expect(err).NotTo(HaveOccurred())

			Expect(traced).To(Equal(plain))
			Expect(buf.String()).To(ContainSubstring("partials matrix"))
			Expect(buf.String()).To(ContainSubstring("state transition matrix derivative"))
		})
	})
})
