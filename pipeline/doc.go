// Package pipeline wires the packages into the end-to-end job:
//
//	load -> assemble -> compile -> fit -> save -> predict -> reconstruct -> write
//
// Every failure is returned as a *StageError naming the step that failed.
package pipeline
