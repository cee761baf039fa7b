// Command repcrec runs the replicated-copies concurrency-control simulator
// over a textual operation trace, reading from a file argument or stdin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"repcrec/config"
	"repcrec/datamgr"
	"repcrec/driver"
	"repcrec/logging"
	"repcrec/report"
	"repcrec/trace"
	"repcrec/txnmgr"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	sites := flag.Int("sites", 0, "number of sites (overrides config/default)")
	vars := flag.Int("vars", 0, "number of variables (overrides config/default)")
	configPath := flag.String("config", "", "path to a YAML config file")
	logLevel := flag.String("log-level", "", "log level override (DEBUG, INFO, WARN, ERROR)")
	logOutput := flag.String("log-output", "", "log output override (stdout, stderr, file, both)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("repcrec %s (%s)\n", Version, GitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *sites > 0 {
		cfg.Sites = *sites
	}
	if *vars > 0 {
		cfg.Variables = *vars
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logOutput != "" {
		cfg.Logging.Output = *logOutput
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.SetupLogging(cfg.Logging)
	if err != nil {
		log.Fatalf("setting up logging: %v", err)
	}
	defer logger.Close()

	in := os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("opening trace file: %v", err)
		}
		defer f.Close()
		in = f
	}

	ops, err := trace.Tokenize(in)
	if err != nil {
		log.Fatalf("reading trace: %v", err)
	}

	dm := datamgr.New(cfg.Sites, cfg.Variables)
	rep := report.New(os.Stdout)
	mgr := txnmgr.New(dm, rep, logging.GetComponentLogger(logger, cfg.Logging, "txnmgr"))
	d := driver.New(dm, mgr, logging.GetComponentLogger(logger, cfg.Logging, "driver"))

	d.Run(ops)
}
