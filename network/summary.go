package network

import (
	"fmt"
	"strings"
)

// LayerInfo describes one stage of the model.
type LayerInfo struct {
	Name   string
	Kind   string
	Shape  []int
	Params int
}

// Summary lists the stages with their per-example output shapes and
// parameter counts.
func (m *Model) Summary() []LayerInfo {
	count := make(map[string]int)
	for _, p := range m.params {
		stage, _, _ := strings.Cut(p.Name, "/")
		count[stage] += p.T.Size()
	}
	out := []LayerInfo{{Name: "input", Kind: "Input", Shape: m.InputShape()}}
	for _, st := range m.stages {
		kind := "Conv2D"
		switch st.Name {
		case "stft":
			kind = "Spectrogram"
		case "dense", OutputName:
			kind = "Dense"
		}
		out = append(out, LayerInfo{
			Name:   st.Name,
			Kind:   kind,
			Shape:  append([]int(nil), st.Shape...),
			Params: count[st.Name],
		})
	}
	return out
}

// TotalParams is the number of trainable values.
func (m *Model) TotalParams() int {
	var n int
	for _, p := range m.params {
		n += p.T.Size()
	}
	return n
}

// String renders Summary as plain text.
func (m *Model) String() string {
	var b strings.Builder
	for _, l := range m.Summary() {
		fmt.Fprintf(&b, "%-12s %-12s %-18v %d\n", l.Name, l.Kind, l.Shape, l.Params)
	}
	fmt.Fprintf(&b, "total params: %d\n", m.TotalParams())
	return b.String()
}
