// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/proctor-works/proctor/lib/task"
)

const resultSentinel = "#proctor:result "

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "proctor-worker-mock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var stepDelay time.Duration

	flagSet := pflag.NewFlagSet("proctor-worker-mock", pflag.ContinueOnError)
	flagSet.DurationVar(&stepDelay, "step-delay", 10*time.Millisecond, "pause between progress lines")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: proctor-worker-mock [flags] <task-file>")
	}

	descriptor, err := task.ReadTransient(flagSet.Arg(0))
	if err != nil {
		return err
	}
	if descriptor.CredentialRef != "" {
		progress("resolved credential %s", descriptor.CredentialRef)
	}

	// A SIGTERM from the bridge's grace period ends the run cleanly.
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, syscall.SIGTERM, syscall.SIGINT)

	started := time.Now()
	text := strings.ToLower(descriptor.Task)
	switch {
	case strings.Contains(text, "simulate-hang"):
		progress("entering long operation")
		select {
		case <-interrupted:
			return fmt.Errorf("terminated while hanging")
		case <-time.After(time.Hour):
			return fmt.Errorf("hang elapsed without termination")
		}

	case strings.Contains(text, "simulate-garbage"):
		progress("producing malformed output")
		fmt.Println("this final line is not a result object")
		return nil

	case strings.Contains(text, "simulate-exit"):
		fmt.Fprintln(os.Stderr, "simulated internal failure")
		os.Exit(9)
	}

	actions := scriptedActions(descriptor)
	for _, action := range actions {
		progress("%s: %s", action.ActionType, action.ActionDetails)
		select {
		case <-interrupted:
			return fmt.Errorf("terminated mid-task")
		case <-time.After(stepDelay):
		}
	}

	result := task.ExecutionResult{
		Success:         true,
		ExecutionLog:    actions,
		Iterations:      len(actions),
		DurationSeconds: time.Since(started).Seconds(),
	}
	if strings.Contains(text, "simulate-unsafe") {
		result.Success = false
		result.SafetyChecksTriggered = 2
		result.Error = "safety checks blocked the requested action"
	}
	return emit(result)
}

// scriptedActions fabricates a plausible action sequence bounded by
// the descriptor's iteration limit.
func scriptedActions(descriptor task.Descriptor) []task.Action {
	actions := []task.Action{
		{ActionType: "screenshot", ActionDetails: "captured initial screen state"},
		{ActionType: "analyze", ActionDetails: "located target for: " + descriptor.Task},
		{ActionType: "click", ActionDetails: "activated target element"},
		{ActionType: "verify", ActionDetails: "confirmed expected screen state"},
	}
	if len(actions) > descriptor.MaxIterations {
		actions = actions[:descriptor.MaxIterations]
	}
	return actions
}

func progress(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

func emit(result task.ExecutionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(resultSentinel + string(data))
	return nil
}
