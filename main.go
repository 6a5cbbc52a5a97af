package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mcncl/deskview/internal/config"
	"github.com/mcncl/deskview/internal/errors"
	"github.com/mcncl/deskview/internal/formatter"
	"github.com/mcncl/deskview/internal/logger"
	"github.com/mcncl/deskview/internal/models"
	"github.com/mcncl/deskview/internal/parser"
	"github.com/mcncl/deskview/internal/report"
	"github.com/mcncl/deskview/internal/servicedesk"
	"github.com/rs/zerolog"
)

// Version information
const (
	Version = "0.1.0"
)

// Globals are flags shared by every command
type Globals struct {
	Config        string        `help:"Path to a YAML config file. Defaults to .deskview.yml found in the working directory or a parent." type:"path"`
	EnvFile       []string      `help:"Dotenv files to read credentials from. The process environment wins." default:".env"`
	URL           string        `help:"API endpoint, e.g. https://desk.example.com/api/v3/requests (env MG_URL)."`
	Token         string        `help:"Auth token sent in the authtoken header (env AUTHTOKEN)."`
	TechnicianKey string        `help:"Technician key sent as the TECHNICIAN_KEY query parameter (env TECHNICIAN_KEY)."`
	Insecure      bool          `help:"Skip TLS certificate verification (env MG_VERIFY_SSL=false)."`
	Timeout       time.Duration `help:"Request timeout (env MG_TIMEOUT). Defaults to 30s."`
	Format        string        `help:"Output format: table, csv or json." short:"f"`
	Export        bool          `help:"Also write the table to a CSV file named after the view." short:"e"`
	OutDir        string        `help:"Directory for exported CSV files." type:"path"`
	Debug         bool          `help:"Enable debug logging." short:"d"`
	Version       bool          `help:"Show version information." short:"v"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Create  CreateCmd  `cmd:"" help:"Create a request and show the response."`
	View    ViewCmd    `cmd:"" help:"List the requests created within a time window."`
	Convert ConvertCmd `cmd:"" default:"withargs" help:"Tabulate a JSON document from a file, stdin or an interactive paste."`
}

// Context holds the runtime context shared by commands
type Context struct {
	Config    *config.Config
	Log       zerolog.Logger
	Formatter *formatter.Formatter
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Now       func() time.Time

	ctx context.Context
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses args, executes the selected command and returns the exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	app := kong.Must(&cli,
		kong.Name("deskview"),
		kong.Description("Create and list service desk requests and show the responses as tables"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)

	kctx, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "deskview: error: %v\n", err)
		fmt.Fprintf(stderr, "\nFor help, run: deskview --help\n")
		return 1
	}

	if cli.Version {
		fmt.Fprintf(stdout, "deskview version %s\n", Version)
		return 0
	}

	cfg, err := config.Load(cli.Config, cli.EnvFile, config.Overrides{
		URL:           cli.URL,
		AuthToken:     cli.Token,
		TechnicianKey: cli.TechnicianKey,
		Insecure:      cli.Insecure,
		Timeout:       cli.Timeout,
		Format:        cli.Format,
		Export:        cli.Export,
		OutputDir:     cli.OutDir,
		Debug:         cli.Debug,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(errors.NewConfigError(err.Error(), err)))
		return 1
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
		Colorize:   isTerminal(stderr),
	}, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	appCtx := &Context{
		Config:    cfg,
		Log:       log,
		Formatter: formatter.NewFormatter(cfg.Display.Format, cfg.HeaderLabel),
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		Now:       time.Now,
		ctx:       ctx,
	}

	if err := kctx.Run(appCtx); err != nil {
		log.Debug().Err(err).Str("command", kctx.Command()).Msg("command failed")
		fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return 1
	}
	return 0
}

// CreateCmd creates a new request
type CreateCmd struct {
	Subject       string `help:"Request subject." required:""`
	Description   string `help:"Request description."`
	RequesterID   string `help:"Requester id."`
	RequesterName string `help:"Requester name."`
	Resolution    string `help:"Resolution text."`
	SiteName      string `help:"Site name."`
	SiteID        string `help:"Site id."`
	AccountName   string `help:"Account name."`
	AccountID     string `help:"Account id."`
	Status        string `help:"Status name." default:"Open"`
}

// Run submits the request and presents the response
func (c *CreateCmd) Run(ctx *Context) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	resp, err := client.Create(ctx.ctx, servicedesk.CreateInput{
		Subject:       c.Subject,
		Description:   c.Description,
		RequesterID:   c.RequesterID,
		RequesterName: c.RequesterName,
		Resolution:    c.Resolution,
		SiteName:      c.SiteName,
		SiteID:        c.SiteID,
		AccountName:   c.AccountName,
		AccountID:     c.AccountID,
		Status:        c.Status,
	})
	return ctx.present(report.FromResponse(resp, err, report.CreateView(ctx.Config.Columns.Create)))
}

// ViewCmd lists requests created within a time window
type ViewCmd struct {
	StartDate            string `help:"First day of the window (YYYY-MM-DD). Defaults to today."`
	StartTime            string `help:"Time of day the window opens (HH:MM[:SS]). Defaults to 00:00:00."`
	EndDate              string `help:"Last day of the window (YYYY-MM-DD). Defaults to today."`
	EndTime              string `help:"Time of day the window closes (HH:MM[:SS]). Defaults to 23:59:59."`
	Start                string `help:"Free-text start, e.g. '2025-11-04 08:00'. Overrides --start-date and --start-time."`
	End                  string `help:"Free-text end. Overrides --end-date and --end-time."`
	IncludeTechnicianKey bool   `help:"Also send the technician key on the listing call."`
}

// Run resolves the window, lists the requests and presents them
func (c *ViewCmd) Run(ctx *Context) error {
	window, err := servicedesk.BuildWindow(servicedesk.WindowInput{
		StartDate: c.StartDate,
		StartTime: c.StartTime,
		EndDate:   c.EndDate,
		EndTime:   c.EndTime,
		Start:     c.Start,
		End:       c.End,
	}, ctx.Now(), time.Local)
	if err != nil {
		return err
	}

	ctx.Log.Debug().
		Time("start", window.Start).
		Time("end", window.End).
		Int64("start_ms", servicedesk.EpochMillis(window.Start)).
		Int64("end_ms", servicedesk.EpochMillis(window.End)).
		Msg("listing window")

	client, err := ctx.client()
	if err != nil {
		return err
	}
	resp, err := client.List(ctx.ctx, window, c.IncludeTechnicianKey)
	return ctx.present(report.FromResponse(resp, err, report.ListView(ctx.Config.Columns.View)))
}

// ConvertCmd tabulates a JSON document without calling the API
type ConvertCmd struct {
	Input   string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Columns string `help:"Column preference list to apply: create, view or all." enum:"create,view,all" default:"view"`
}

// Run parses the input and presents it as a table
func (c *ConvertCmd) Run(ctx *Context) error {
	value, err := parseInput(ctx, c.Input)
	if err != nil {
		return err
	}

	var view report.View
	switch c.Columns {
	case "create":
		view = report.CreateView(ctx.Config.Columns.Create)
	case "all":
		view = report.ListView(nil)
	default:
		view = report.ListView(ctx.Config.Columns.View)
	}
	return ctx.present(report.Build(value, view))
}

func (c *Context) client() (*servicedesk.Client, error) {
	if err := c.Config.RequireEndpoint(); err != nil {
		return nil, err
	}
	return servicedesk.NewClient(servicedesk.ClientConfig{
		URL:           c.Config.API.URL,
		AuthToken:     c.Config.API.AuthToken,
		TechnicianKey: c.Config.API.TechnicianKey,
		VerifySSL:     c.Config.API.VerifySSL,
		Timeout:       c.Config.API.Timeout,
	}, c.Log), nil
}

// present renders result, exports it when asked and turns a failed result
// into the command's error
func (c *Context) present(result report.Result) error {
	event := c.Log.Debug()
	if result.State == report.StateRaw {
		event = c.Log.Warn()
	}
	event.Str("view", result.Title).
		Str("state", result.State.String()).
		Int("rows", result.Table.Len()).
		Msg(resultSummary(result))

	if err := c.Formatter.WriteResult(c.Stdout, result); err != nil {
		return err
	}
	if result.State == report.StateFailed {
		return result.Err
	}

	if result.State == report.StateTable && c.Config.Display.Export {
		path, err := formatter.ExportCSV(c.Config.Display.OutputDir, result.Title, result.Table)
		if err != nil {
			return err
		}
		c.Log.Info().Str("path", path).Int("rows", result.Table.Len()).Msg("exported CSV")
	}
	return nil
}

func resultSummary(result report.Result) string {
	if result.Message != "" {
		return result.Message
	}
	return "rendering result"
}

// parseInput reads JSON from file or stdin
func parseInput(ctx *Context, input string) (models.Value, error) {
	if input != "" {
		return parser.ParseFile(input)
	}

	// Interactive mode when stdin is a terminal
	if isTerminal(ctx.Stdin) {
		return readInteractiveInput(ctx.Stdin, ctx.Stderr)
	}

	jsonData, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return models.Null(), errors.NewInputError("failed to read from stdin", err)
	}

	if len(jsonData) == 0 {
		return models.Null(), errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}

	return parser.ParseString(string(jsonData))
}

// readInteractiveInput provides an interactive mode for users to paste JSON
// and signal completion with Ctrl+D (EOF)
func readInteractiveInput(in io.Reader, prompt io.Writer) (models.Value, error) {
	fmt.Fprintln(prompt, "deskview interactive mode")
	fmt.Fprintln(prompt, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(in)
	var jsonBuilder strings.Builder

	for {
		line, err := reader.ReadString('\n')
		jsonBuilder.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Null(), errors.NewInputError("error reading input", err)
		}
	}

	jsonData := jsonBuilder.String()
	if strings.TrimSpace(jsonData) == "" {
		return models.Null(), errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(prompt, "\nProcessing JSON...")
	return parser.ParseString(jsonData)
}

func isTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
