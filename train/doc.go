// Package train runs mini-batch training with per-epoch validation.
//
// Fit partitions the training set into contiguous batches (the last one may be
// smaller), performs one optimizer step per batch through the Model
// interface, then evaluates the validation set and appends one Epoch to the
// History. Early stopping is opt-in.
package train
