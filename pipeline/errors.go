package pipeline

import "fmt"

// Stage names.
const (
	StageLoad        = "load"
	StageAssemble    = "assemble"
	StageCompile     = "compile"
	StageFit         = "fit"
	StageSave        = "save"
	StagePredict     = "predict"
	StageReconstruct = "reconstruct"
	StageWrite       = "write"
)

// StageError reports the pipeline step that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
