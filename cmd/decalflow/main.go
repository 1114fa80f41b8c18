// Command decalflow lists, invokes and serves decal generation flows.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/decalflow"
	"github.com/hupe1980/decalflow/config"
	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/server"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "decalflow",
		Usage:     "Generate, moderate and order custom device decals with generative AI flows",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` (default .env)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Override DECALFLOW_PROVIDER (gemini, openai, anthropic, mock)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "flows",
				Usage:  "List the registered flows",
				Action: listFlows,
			},
			{
				Name:      "invoke",
				Usage:     "Invoke a flow and print its output as JSON",
				ArgsUsage: "<flow>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Flow input as JSON, or @FILE, or - for stdin",
						Value:   "{}",
					},
				},
				Action: invokeFlow,
			},
			{
				Name:  "serve",
				Usage: "Serve flows, the gallery and carts over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default DECALFLOW_HTTP_ADDR or :8080)",
					},
					&cli.StringFlag{
						Name:    "admin-token",
						Usage:   "Bearer token required for moderation endpoints",
						EnvVars: []string{"DECALFLOW_ADMIN_TOKEN"},
					},
				},
				Action: serve,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return nil, err
	}
	if p := c.String("provider"); p != "" {
		cfg.Provider = p
	}
	return cfg, nil
}

func newDecalFlow(c *cli.Context) (*decalflow.DecalFlow, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	app, err := decalflow.NewFromConfig(c.Context, cfg)
	if err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}

func listFlows(c *cli.Context) error {
	app, _, err := newDecalFlow(c)
	if err != nil {
		return err
	}
	defer app.Close()

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tDESCRIPTION")
	for _, f := range app.Flows() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, f.Kind(), f.Description)
	}
	return w.Flush()
}

func invokeFlow(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("flow name is required", 2)
	}
	input, err := readInput(c.String("input"), os.Stdin)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	app, _, err := newDecalFlow(c)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Invoke(c.Context, name, input)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(arg string, stdin io.Reader) (any, error) {
	var raw []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		raw = b
	case len(arg) > 1 && arg[0] == '@':
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		raw = []byte(arg)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("input is not valid JSON: %w", err)
	}
	return input, nil
}

func serve(c *cli.Context) error {
	app, cfg, err := newDecalFlow(c)
	if err != nil {
		return err
	}
	defer app.Close()

	addr := c.String("addr")
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := app.Server(func(o *server.Options) { o.AdminToken = c.String("admin-token") })
	return srv.Run(ctx, addr)
}

// exitCode distinguishes retryable upstream failures (75, EX_TEMPFAIL) and
// caller errors (2) from other failures.
func exitCode(err error) int {
	var (
		exit cli.ExitCoder
		ii   *core.InvalidInputError
		nf   *core.NotFoundError
	)
	switch {
	case errors.As(err, &exit):
		return exit.ExitCode()
	case core.IsRetryable(err):
		return 75
	case errors.As(err, &ii), errors.As(err, &nf):
		return 2
	}
	return 1
}
