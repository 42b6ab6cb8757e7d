//go:build regression

//go:generate go run -tags regression gen.regression.go
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"sort"
	"text/template"

	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression fits cycles = Intercept + Slope*bytes over a benchmark
// sample set, used offline to fit a per-profile DMA bandwidth table from
// measured hardware traces and write it to
// pkg/estimator/bandwidth_generated.go. No MCE/PLE cycle constants are
// fitted.
type LinearRegression struct {
	Intercept float64
	Slope     float64
}

func (lr *LinearRegression) Fit(xs, ys []float64) {
	if len(xs) != len(ys) {
		panic("length of xs and ys must be the same")
	}

	n := len(xs)
	a := mat.NewDense(n, 2, nil)
	b := mat.NewVecDense(n, ys)
	for i, x := range xs {
		a.Set(i, 0, 1)
		a.Set(i, 1, x)
	}

	var qr mat.QR
	qr.Factorize(a)

	var coeffs mat.VecDense
	if err := qr.SolveVecTo(&coeffs, false, b); err != nil {
		panic(fmt.Errorf("gen.regression: fit failed: %w", err))
	}

	lr.Intercept = coeffs.AtVec(0)
	lr.Slope = coeffs.AtVec(1)
}

func (lr *LinearRegression) Predict(x float64) float64 {
	return lr.Intercept + lr.Slope*x
}

// benchmarkSample is one measured (bytes moved, cycles elapsed) pair,
// keyed by the hardware capability profile it was measured under.
type benchmarkSample struct {
	Profile string
	Bytes   float64
	Cycles  float64
}

var samples = []benchmarkSample{
	{Profile: "n78-high", Bytes: 1024, Cycles: 64},
	{Profile: "n78-high", Bytes: 4096, Cycles: 256},
	{Profile: "n78-high", Bytes: 16384, Cycles: 1024},
	{Profile: "n78-low", Bytes: 1024, Cycles: 128},
	{Profile: "n78-low", Bytes: 4096, Cycles: 512},
}

const tmplSrc = `// Code generated by gen.regression.go; DO NOT EDIT.
package estimator

// dmaBandwidthByProfile holds per-hardware-profile bytes/cycle constants,
// fit from benchmark traces by gen.regression.go.
var dmaBandwidthByProfile = map[string]float64{
{{- range $k, $v := . }}
	"{{ $k }}": {{ $v }},
{{- end }}
}
`

func main() {
	byProfile := map[string][]benchmarkSample{}
	for _, s := range samples {
		byProfile[s.Profile] = append(byProfile[s.Profile], s)
	}

	bandwidths := map[string]float64{}
	for profile, ss := range byProfile {
		xs := make([]float64, len(ss))
		ys := make([]float64, len(ss))
		for i, s := range ss {
			xs[i], ys[i] = s.Bytes, s.Cycles
		}
		var lr LinearRegression
		lr.Fit(xs, ys)
		if lr.Slope == 0 {
			lr.Slope = 1
		}
		bandwidths[profile] = 1 / lr.Slope
	}

	profiles := maps.Keys(byProfile)
	sort.Strings(profiles)

	tmpl := template.Must(template.New("regression").Parse(tmplSrc))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, bandwidths); err != nil {
		panic(err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile("pkg/estimator/bandwidth_generated.go", formatted, 0o644); err != nil {
		panic(err)
	}
}
