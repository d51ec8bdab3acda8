package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"osint/internal/collector"
	"osint/internal/config"
	"osint/internal/correlator"
	"osint/internal/export"
	"osint/pkg/domain"
	"osint/pkg/logger"
)

// collectOutput is the document written by the collect command. The
// correlation fields are only present when asked for.
type collectOutput struct {
	domain.RunSummary

	Correlation *domain.CorrelationReport `json:"correlation,omitempty"`
	Export      *export.TabularResult     `json:"export,omitempty"`
}

type collectFlags struct {
	domain     string
	username   string
	phone      string
	ip         string
	images     []string
	out        string
	summary    bool
	quiet      bool
	maxWorkers int
	correlate  bool
	export     string
}

// target turns the flags into exactly one target.
func (f *collectFlags) target() (domain.Target, error) {
	var targets []domain.Target
	for kind, value := range map[domain.TargetKind]string{
		domain.TargetDomain:   f.domain,
		domain.TargetUsername: f.username,
		domain.TargetPhone:    f.phone,
		domain.TargetIP:       f.ip,
	} {
		if value != "" {
			targets = append(targets, domain.Target{Kind: kind, Value: value})
		}
	}
	if len(f.images) > 0 {
		targets = append(targets, domain.Target{Kind: domain.TargetImages, Values: f.images})
	}

	if len(targets) != 1 {
		return domain.Target{}, fmt.Errorf("exactly one of --domain, --username, --phone, --ip or --image is required, got %d", len(targets)) //nolint: err113
	}

	t := targets[0].Normalize()

	return t, t.Validate() //nolint: wrapcheck
}

func runCollect(ctx context.Context, cfg *config.Config, f *collectFlags, stdout, stderr io.Writer) error {
	target, err := f.target()
	if err != nil {
		return err
	}

	opts := collector.NewOptions(cfg)
	if f.maxWorkers > 0 {
		opts.MaxWorkers = f.maxWorkers
	}
	summary := collector.New(collector.NewSources(cfg), opts, nil).Summarize(ctx, target)

	out := collectOutput{RunSummary: summary}
	if f.correlate || f.export != "" {
		res := correlator.Correlate(summary.Results)
		out.Correlation = &res.Report

		if f.export != "" {
			out.Export, err = export.Tabular{Sink: newArtifactSink(ctx, cfg)}.Export(ctx, f.export, res.Entities, res.Relationships)
			if err != nil {
				return err //nolint: wrapcheck
			}
		}
	}

	doc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode run summary: %w", err)
	}
	doc = append(doc, '\n')

	switch {
	case f.out != "":
		if err := os.WriteFile(f.out, doc, 0o600); err != nil {
			return fmt.Errorf("could not write run summary: %w", err)
		}
	case !f.summary:
		if _, err := stdout.Write(doc); err != nil {
			return fmt.Errorf("could not write run summary: %w", err)
		}
	}

	if !f.quiet {
		printSummary(stderr, f, &out)
	}

	return nil
}

// printSummary writes one colored line per module and a closing totals line.
func printSummary(w io.Writer, f *collectFlags, out *collectOutput) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	accent := color.New(color.FgCyan).SprintFunc()

	failed := 0
	for _, env := range out.Results {
		if env.Failed() {
			failed++
		}
		if !f.summary {
			continue
		}
		if env.Failed() {
			_, _ = fmt.Fprintf(w, "  %s %-16s %s\n", bad("✗"), env.Module, env.Error)
		} else {
			_, _ = fmt.Fprintf(w, "  %s %s\n", ok("✓"), env.Module)
		}
	}

	_, _ = fmt.Fprintf(w, "%s %d modules, %s, %s in %s\n",
		accent("[osint]"),
		len(out.Results),
		ok(fmt.Sprintf("%d ok", len(out.Results)-failed)),
		bad(fmt.Sprintf("%d failed", failed)),
		out.Finished.Sub(out.Started).Round(time.Millisecond),
	)
	if out.Correlation != nil {
		_, _ = fmt.Fprintf(w, "%s %d entities, %d relationships, %d findings\n",
			accent("[correlate]"),
			out.Correlation.Summary.TotalEntities,
			out.Correlation.Summary.TotalRelationships,
			len(out.Correlation.Correlations),
		)
	}
	if out.Export != nil {
		_, _ = fmt.Fprintf(w, "%s %s, %s\n", accent("[export]"), out.Export.EntitiesFile, out.Export.RelationsFile)
	}
	if f.out != "" {
		_, _ = fmt.Fprintf(w, "%s summary written to %s\n", accent("[osint]"), f.out)
	}
}

func collectCommand(cfg *config.Config) *cobra.Command {
	f := &collectFlags{}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Runs the collector against one target in process",
		Example: `  osint collect -d example.com --correlate
  osint collect --image a.jpg --image b.jpg -o exif.json`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if f.quiet {
				logger.SetLevel(zapcore.ErrorLevel)
			}

			if err := runCollect(ctx, cfg, f, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
				logger.Fatal(ctx, "collection failed", zap.Error(err))
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.domain, "domain", "d", "", "Domain to collect")
	flags.StringVarP(&f.username, "username", "u", "", "Username to check across platforms")
	flags.StringVar(&f.phone, "phone", "", "Phone number to look up")
	flags.StringVar(&f.ip, "ip", "", "IP address to look up")
	flags.StringArrayVar(&f.images, "image", nil, "Image to read metadata from (repeatable)")
	flags.StringVarP(&f.out, "out", "o", "", "Write the run summary to this file instead of stdout")
	flags.BoolVar(&f.summary, "summary", false, "Print per-module status instead of the JSON document")
	flags.BoolVar(&f.quiet, "quiet", false, "Only log errors and skip the summary line")
	flags.IntVar(&f.maxWorkers, "max-workers", 0, "Sources queried at the same time (default from config)")
	flags.BoolVar(&f.correlate, "correlate", false, "Add the correlation report to the output")
	flags.StringVar(&f.export, "export", "", "Export entity and relationship tables with this base name (relative names land in the export dir)")

	return cmd
}
