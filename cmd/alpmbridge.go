/*
Copyright 2026 The alpm-bridge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-alpm/alpm-bridge/internal/alpm"
	"github.com/go-alpm/alpm-bridge/internal/bridge"
	"github.com/go-alpm/alpm-bridge/internal/libalpm"
	"github.com/go-alpm/alpm-bridge/internal/scenario"
	"github.com/go-alpm/alpm-bridge/internal/util"
	"github.com/go-alpm/alpm-bridge/internal/util/log"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
	"k8s.io/klog/v2"
)

var conf util.Config

func init() {
	flag.StringVar(&conf.Mode, "mode", util.ReplayMode, "run mode [replay|probe]")
	flag.StringVar(&conf.ScenarioPath, "scenario", "", "scenario file to replay in replay mode")
	flag.StringVar(&conf.Root, "root", "/", "libalpm root directory in probe mode")
	flag.StringVar(&conf.DBPath, "dbpath", "/var/lib/pacman", "libalpm database directory in probe mode")
	flag.StringVar(&conf.LogLevels, "loglevel", "error,warning",
		"comma separated libalpm log levels to print [error|warning|debug|function]")
	flag.IntVar(&conf.MaxMessageSize, "maxmessagesize", 0,
		"drop replayed log lines that need a buffer larger than this, 0 disables the limit")
	flag.BoolVar(&conf.Interactive, "interactive", false, "ask questions on the terminal")
	flag.BoolVar(&conf.NoConfirm, "noconfirm", false, "answer questions with pacman's default answers")

	flag.BoolVar(&conf.EnableMetrics, "enablemetrics", false, "serve bridge metrics once the run has finished")
	flag.StringVar(&conf.MetricsIP, "metricsip", "", "IP the metrics server listens on")
	flag.IntVar(&conf.MetricsPort, "metricsport", 8080, "TCP port for metrics requests")
	flag.StringVar(&conf.MetricsPath, "metricspath", "/metrics",
		"path of prometheus endpoint where metrics will be available")
	flag.BoolVar(&conf.Version, "version", false, "Print alpm-bridge version information")

	klog.InitFlags(nil)
	if err := flag.Set("logtostderr", "true"); err != nil {
		klog.Exitf("failed to set logtostderr flag: %v", err)
	}
	flag.Parse()
}

func printVersion() {
	fmt.Println("alpm-bridge Version:", util.BridgeVersion)
	fmt.Println("Git Commit:", util.GitCommit)
	fmt.Println("Go Version:", runtime.Version())
	fmt.Println("Compiler:", runtime.Compiler)
	fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func main() {
	if conf.Version {
		printVersion()
		os.Exit(0)
	}

	log.DefaultLog("alpm-bridge version: %s and Git version: %s", util.BridgeVersion, util.GitCommit)

	if err := conf.Validate(); err != nil {
		log.FatalLogMsg("%v", err)
	}
	mask, err := alpm.ParseLogLevels(conf.LogLevels)
	if err != nil {
		log.FatalLogMsg("%v", err)
	}
	if conf.EnableMetrics {
		if err = bridge.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			log.FatalLogMsg("%v", err)
		}
	}

	switch conf.Mode {
	case util.ReplayMode:
		err = runReplay(os.Stdout, mask)
	case util.ProbeMode:
		err = runProbe(os.Stdout, mask)
	}
	if err != nil {
		log.FatalLogMsg("%s failed: %v", conf.Mode, err)
	}

	if conf.EnableMetrics {
		util.StartMetricsServer(&conf)
	}
}

// printLogCallback writes every line whose level is in mask to out.
func printLogCallback(out io.Writer, mask alpm.LogLevel) alpm.LogCallback {
	return alpm.FilterLogLevels(mask, func(_ interface{}, lvl alpm.LogLevel, msg string) {
		fmt.Fprintf(out, "%s: %s", lvl, msg)
	})
}

// questionCallback returns the callback for the configured answer mode, or
// nil when libalpm's preset answers are kept.
func questionCallback(out io.Writer) alpm.QuestionCallback {
	if conf.Interactive {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return alpm.PromptCallback(os.Stdin, out, alpm.DefaultAnswers)
		}
		log.WarningLogMsg("stdin is not a terminal, answering with the default answers")

		return alpm.DefaultAnswers.Callback()
	}
	if conf.NoConfirm {
		return alpm.DefaultAnswers.Callback()
	}

	return nil
}

func attach(h *alpm.Handle, out io.Writer, mask alpm.LogLevel) error {
	if err := h.SetLogCallback(printLogCallback(out, mask), nil); err != nil {
		return err
	}
	if cb := questionCallback(out); cb != nil {
		if err := h.SetQuestionCallback(cb, nil); err != nil {
			return err
		}
	}

	return nil
}

func runReplay(out io.Writer, mask alpm.LogLevel) error {
	sc, err := scenario.Load(conf.ScenarioPath)
	if err != nil {
		return err
	}
	f := sc.NewFakeHandle()
	if conf.MaxMessageSize > 0 {
		f.SetAllocator(bridge.HeapAllocator{Limit: conf.MaxMessageSize})
	}

	h, err := alpm.NewHandle(f)
	if err != nil {
		return err
	}
	if err = attach(h, out, mask); err != nil {
		return util.JoinErrors(err, h.Release())
	}

	mismatches := 0
	for _, r := range scenario.Replay(f, sc) {
		status := "ok"
		if !r.Matched() {
			status = fmt.Sprintf("expected %d", *r.Expected)
			mismatches++
		}
		fmt.Fprintf(out, "question %d (%s): answer %d %s\n", r.Event, r.Type, r.Answer, status)
	}

	if err = h.Release(); err != nil {
		return err
	}
	if mismatches > 0 {
		return fmt.Errorf("%d of the answers in %s did not match", mismatches, conf.ScenarioPath)
	}

	return nil
}

func runProbe(out io.Writer, mask alpm.LogLevel) error {
	native, err := libalpm.Initialize(conf.Root, conf.DBPath)
	if err != nil {
		return err
	}
	if conf.MaxMessageSize > 0 {
		log.WarningLogMsg("maxmessagesize only applies to replay mode")
	}

	h, err := alpm.NewHandle(native)
	if err != nil {
		return util.JoinErrors(err, native.Release())
	}
	if err = attach(h, out, mask); err != nil {
		return util.JoinErrors(err, h.Release())
	}
	log.DefaultLog("attached bridge to libalpm handle %s for %s", h.ID(), conf.Root)

	return h.Release()
}
