// Package arch describes convolutional stacks declaratively.
//
// A stack is an ordered list of Layer values, each standing for one strided
// 2D convolution C(F,K1,K2,S1,S2): F filters of size (K1,K2) with strides
// (S1,S2). Infer walks a stack over an input shape and reports the shape after
// every stage, failing with ErrShape before any tensor is allocated.
package arch
