package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/a-teotia/AISignalNEW-sub001/internal/acquire"
	"github.com/a-teotia/AISignalNEW-sub001/internal/config"
	"github.com/a-teotia/AISignalNEW-sub001/internal/metrics"
	"github.com/a-teotia/AISignalNEW-sub001/internal/ops"
	"github.com/a-teotia/AISignalNEW-sub001/internal/pipeline"
	sig "github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/strategy"
)

const (
	appName = "aisignal"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Multi-agent trading signal synthesis",
		Version: version,
		Long: `aisignal reduces a batch of heterogeneous analysis-agent reports to a
single risk-bounded trading decision: validated, cross-checked, dynamically
weighted, and refused outright when the evidence is too thin.`,
	}

	decideCmd := &cobra.Command{
		Use:   "decide",
		Short: "Synthesize one decision from a batch of source reports",
		Long: `Runs the full synthesis pipeline for one subject and prints the decision.
The batch comes from --input when given, otherwise it is collected live from
the agent endpoints configured under "agents" in the config file.`,
		RunE: runDecide,
	}
	decideCmd.Flags().String("input", "", "Path to a JSON file containing the source output batch")
	decideCmd.Flags().String("subject", "", "Subject symbol the batch is about (required)")
	decideCmd.Flags().String("strategy", "", "Strategy profile (intraday|swing|position or from config)")
	decideCmd.Flags().String("config", "", "Optional yaml config path")
	decideCmd.Flags().String("ops-addr", "", "Serve /metrics and /healthz on this address while running")
	_ = decideCmd.MarkFlagRequired("subject")

	strategiesCmd := &cobra.Command{
		Use:   "strategies",
		Short: "List available strategy profiles",
		RunE:  runStrategies,
	}
	strategiesCmd.Flags().String("config", "", "Optional yaml config path")

	rootCmd.AddCommand(decideCmd, strategiesCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runDecide(cmd *cobra.Command, _ []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	subject, _ := cmd.Flags().GetString("subject")
	strategyName, _ := cmd.Flags().GetString("strategy")
	configPath, _ := cmd.Flags().GetString("config")
	opsAddr, _ := cmd.Flags().GetString("ops-addr")

	cfg, profiles, file, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	var prof *strategy.Profile
	if strategyName != "" {
		p, ok := profiles[strategyName]
		if !ok {
			return fmt.Errorf("unknown strategy profile %q", strategyName)
		}
		prof = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		outputs  []sig.SourceOutput
		failures []acquire.Failure
	)
	switch {
	case inputPath != "":
		outputs, err = readBatch(inputPath)
		if err != nil {
			return err
		}
	case file != nil && len(file.Agents) > 0:
		var ttl time.Duration
		if prof != nil {
			ttl = prof.CacheTTL
		}
		collector := acquire.NewCollector(file.AcquireConfig(), file.CacheBackend(), file.Collaborators()...)
		outputs, failures = collector.Collect(ctx, subject, ttl)
	default:
		return fmt.Errorf("either --input or a config file with agents is required")
	}

	registry := prometheus.NewRegistry()
	metricSet := metrics.NewSet(registry)

	if opsAddr != "" {
		server := ops.NewServer(opsAddr, registry)
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("ops server failed")
			}
		}()
		defer func() { _ = server.Close() }()
	}

	p, err := pipeline.New(cfg, metricSet)
	if err != nil {
		return err
	}

	dec, err := p.Run(ctx, pipeline.Input{
		Subject:  subject,
		Outputs:  outputs,
		Failures: failures,
		Strategy: prof,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(dec)
}

func runStrategies(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	_, profiles, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	for name, p := range profiles {
		fmt.Printf("%-10s focus=%-3s decay=%.0f%%/day  %s\n", name, p.Focus, p.DecayRatePerDay, p.Description)
	}
	return nil
}

func loadConfig(path string) (pipeline.Config, map[string]*strategy.Profile, *config.File, error) {
	cfg := pipeline.DefaultConfig()
	if path == "" {
		return cfg, strategy.Presets(), nil, nil
	}

	file, err := config.Load(path)
	if err != nil {
		return cfg, nil, nil, err
	}
	cfg.Extractor = file.ExtractorConfig()

	profiles, err := file.Profiles()
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, profiles, file, nil
}

func readBatch(path string) ([]sig.SourceOutput, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var outputs []sig.SourceOutput
	if err := json.Unmarshal(b, &outputs); err != nil {
		return nil, fmt.Errorf("parse source batch %s: %w", path, err)
	}
	return outputs, nil
}
