package subsvd

import (
	"testing"

	"github.com/n0madic/go-vote-prediction/vote"
)

func benchmarkFitPredict(b *testing.B, lk Likelihood) {
	y, weights := testPanel(217, 30)
	m, err := New(lk, y, weights, 10)
	if err != nil {
		b.Fatal(err)
	}
	p, err := vote.NewPartial(217)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 217; i += 10 {
		if err := p.Set(i, y.At(i, 29)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.FitPredict(p); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitPredictGaussian(b *testing.B) {
	benchmarkFitPredict(b, Gaussian)
}

func BenchmarkFitPredictLogistic(b *testing.B) {
	benchmarkFitPredict(b, Logistic)
}

func BenchmarkNew(b *testing.B) {
	y, weights := testPanel(217, 30)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := New(Gaussian, y, weights, 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitPredictParallel(b *testing.B) {
	y, weights := testPanel(217, 30)
	m, err := New(Gaussian, y, weights, 10)
	if err != nil {
		b.Fatal(err)
	}
	p, err := vote.NewPartial(217)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 217; i += 10 {
		if err := p.Set(i, y.At(i, 29)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := m.FitPredict(p); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
