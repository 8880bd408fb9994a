package main

import (
	"fmt"

	"github.com/crimson-sun/lookout/internal/config"
	"github.com/crimson-sun/lookout/internal/output"
	"github.com/crimson-sun/lookout/internal/output/async"
	"github.com/crimson-sun/lookout/internal/output/file"
	"github.com/crimson-sun/lookout/internal/output/multi"
	"github.com/crimson-sun/lookout/internal/output/stdout"
	"github.com/crimson-sun/lookout/internal/output/webhook"
)

func writesStdout(cfg config.OutputConfig) bool {
	for _, t := range cfg.Targets {
		if t == "stdout" {
			return true
		}
	}
	return false
}

// buildOutput creates one output per target, fanned out when there are
// several. A webhook is wrapped in async when requested so a slow endpoint
// does not hold up the workers.
func buildOutput(cfg config.OutputConfig) (output.Output, error) {
	verbosity := output.ParseVerbosity(cfg.Verbosity)

	var outs []output.Output
	closeAll := func() {
		for _, o := range outs {
			o.Close()
		}
	}
	for _, target := range cfg.Targets {
		switch target {
		case "stdout":
			outs = append(outs, stdout.New(verbosity, cfg.Pretty))
		case "file":
			var opts []file.Option
			if cfg.FileMaxSize > 0 {
				opts = append(opts, file.WithMaxSize(cfg.FileMaxSize))
			}
			f, err := file.New(cfg.FilePath, verbosity, opts...)
			if err != nil {
				closeAll()
				return nil, err
			}
			outs = append(outs, f)
		case "webhook":
			opts := []webhook.Option{webhook.WithVerbosity(verbosity)}
			if len(cfg.WebhookHeaders) > 0 {
				opts = append(opts, webhook.WithHeaders(cfg.WebhookHeaders))
			}
			if cfg.WebhookProblemsOnly {
				opts = append(opts, webhook.WithProblemsOnly())
			}
			var wh output.Output = webhook.New(cfg.WebhookURL, opts...)
			if cfg.Async {
				wh = async.New(wh, async.WithDropOnFull())
			}
			outs = append(outs, wh)
		default:
			closeAll()
			return nil, fmt.Errorf("unknown output target %q", target)
		}
	}

	switch len(outs) {
	case 0:
		return nil, fmt.Errorf("no output targets configured")
	case 1:
		return outs[0], nil
	default:
		return multi.New(outs...), nil
	}
}
