// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command astinterp decodes a compact AST file and drives it to
// completion, printing the emitted command stream to stdout. Grounded on
// kati's cmd/kati entry point (main.go, cmdline.go): flag-driven options
// parsed into a struct, then handed to the library proper.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	interp "github.com/sfranzyshen/ASTInterpreter-sub005"
)

var (
	astPath           = flag.String("ast", "", "path to a compact AST file (required)")
	maxLoopIterations = flag.Int("max-loop-iterations", 1000, "upper bound on loop() iterations")
	verbose           = flag.Bool("verbose", false, "enable verbose interpreter logging")
	debug             = flag.Bool("debug", false, "enable debug mode")
	seed              = flag.Int64("seed", 1, "seed for the random() intrinsic's PRNG")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *astPath == "" {
		fmt.Fprintln(os.Stderr, "astinterp: -ast is required")
		os.Exit(2)
	}
	astBytes, err := os.ReadFile(*astPath)
	if err != nil {
		glog.Exitf("astinterp: reading %s: %v", *astPath, err)
	}

	ip, err := interp.New(astBytes, interp.Options{
		Verbose:           *verbose,
		Debug:             *debug,
		MaxLoopIterations: *maxLoopIterations,
		Seed:              *seed,
		EnableSerial:      true,
		EnablePins:        true,
	})
	if err != nil {
		glog.Exitf("astinterp: loading AST: %v", err)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	ip.OnCommand(interp.SinkFunc(func(c *interp.Command) {
		fmt.Fprintln(out, c.Serialize())
	}))

	ip.Start()
	driveToCompletion(ip)
}

// driveToCompletion answers every host-mediated request with a
// reasonable stub value so a sketch with no real hardware attached still
// runs to completion, grounded on kati's -n/dry-run stub-execution mode
// (exec.go) adapted from "don't run recipe commands" to "don't block on
// real hardware responses".
func driveToCompletion(ip *interp.Interpreter) {
	for {
		switch ip.State() {
		case interp.StateComplete, interp.StateError, interp.StateIdle:
			return
		case interp.StateWaitingForResponse:
			reqID, opName := ip.PendingRequest()
			ip.HandleResponse(reqID, stubResponse(opName))
		default:
			return
		}
	}
}

// stubResponse answers a request intrinsic with a plausible placeholder
// value when no real hardware is attached.
func stubResponse(opName string) interp.Value {
	switch opName {
	case "Serial.readString", "Serial.readStringUntil":
		return interp.StringValue("")
	case "Serial.parseFloat":
		return interp.F64Value(0)
	default:
		return interp.I32Value(0)
	}
}
