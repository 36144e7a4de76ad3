package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/glimte/courier-go"
	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
	"github.com/glimte/courier-go/interceptors"
	"github.com/glimte/courier-go/metadata"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// rawAPI is the service behind the call command. Its metadata is
// registered at runtime from the command line.
type rawAPI struct {
	Send     func(ctx context.Context) *courier.Call
	SendBody func(ctx context.Context, body []byte) *courier.Call
}

type callOptions struct {
	configPath string
	baseURL    string
	debug      bool
	headers    []string
	data       string
	retries    int
	rate       float64
	metrics    bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "courier",
		Short: "Send requests through a courier client",
		Long: `courier sends one HTTP request through the same interceptor chain a
generated client uses: logging, retry and the optional user stages.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	var opts callOptions
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML client configuration")
	rootCmd.PersistentFlags().StringVarP(&opts.baseURL, "base-url", "b", "", "Base URL, overrides the config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "verbose", "v", false, "Log every request")

	callCmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send a single request",
		Example: `  courier call GET /users/42 -b https://api.example.com
  courier call POST /users -d '{"name":"ada"}' -H 'X-Source: cli'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCall(ctx, cmd, strings.ToUpper(args[0]), args[1], opts)
		},
	}
	callCmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Header as 'Key: Value', repeatable")
	callCmd.Flags().StringVarP(&opts.data, "data", "d", "", "Request body")
	callCmd.Flags().IntVarP(&opts.retries, "retries", "r", -1, "Retry attempts, overrides the config file")
	callCmd.Flags().Float64Var(&opts.rate, "rate", 0, "Requests per second per host, 0 for no limit")
	callCmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print request metrics when done")

	rootCmd.AddCommand(callCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runCall(ctx context.Context, cmd *cobra.Command, verb, path string, opts callOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	meta, err := callMetadata(verb, path, opts)
	if err != nil {
		return err
	}
	if err := metadata.Register(reflect.TypeOf(rawAPI{}), meta); err != nil {
		return err
	}

	builder := courier.NewBuilder().
		SetConfig(cfg).
		SetLogger(config.NewLogger(cmd.ErrOrStderr(), cfg.Debug)).
		SetErrorHandler(func(reason error, exc *exceptions.Exception) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", exc.Kind, reason)
		})

	registry := prometheus.NewRegistry()
	if opts.metrics {
		if err := builder.AddInterceptor(interceptors.NewMetricsInterceptor(interceptors.WithRegisterer(registry))); err != nil {
			return err
		}
	}
	if opts.rate > 0 {
		if err := builder.AddInterceptor(interceptors.NewRateLimitInterceptor(opts.rate, 1)); err != nil {
			return err
		}
	}

	client, err := builder.Build()
	if err != nil {
		return err
	}
	defer client.Close()

	api, err := courier.Create[rawAPI](client)
	if err != nil {
		return err
	}

	var call *courier.Call
	if meta.Name == "SendBody" {
		call = api.SendBody(ctx, []byte(opts.data))
	} else {
		call = api.Send(ctx)
	}

	go func() {
		select {
		case <-ctx.Done():
			call.Cancel("interrupted")
		case <-call.Done():
		}
	}()

	resp, err := call.Await(context.Background())
	if opts.metrics {
		printMetrics(cmd, registry)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%d %s (%s)\n", resp.StatusCode, resp.Request.Route(), resp.Duration)
	_, _ = cmd.OutOrStdout().Write(resp.Body)
	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func loadConfig(opts callOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.retries >= 0 {
		cfg.Retry.MaxRetries = opts.retries
	}
	cfg.Debug = cfg.Debug || opts.debug
	return cfg, cfg.Validate()
}

func callMetadata(verb, path string, opts callOptions) (*contracts.MethodMetadata, error) {
	meta := &contracts.MethodMetadata{
		Name:       "Send",
		Verb:       verb,
		Path:       path,
		HasContext: true,
	}
	if opts.data != "" {
		meta.Name = "SendBody"
		meta.Params = []contracts.ParamBinding{{Kind: contracts.ParamBody}}
	}

	for _, h := range opts.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Key: Value'", h)
		}
		if meta.Headers == nil {
			meta.Headers = make(map[string]string)
		}
		meta.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return meta, nil
}

func printMetrics(cmd *cobra.Command, registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "gather metrics: %v\n", err)
		return
	}

	w := cmd.ErrOrStderr()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			fmt.Fprintf(w, "encode metrics: %v\n", err)
			return
		}
	}
}
