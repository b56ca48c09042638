package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"stockcards/internal/config"
	"stockcards/internal/connectors"
	gmailconnector "stockcards/internal/connectors/gmail"
	imapconnector "stockcards/internal/connectors/imap"
	"stockcards/internal/listener"
	"stockcards/internal/logging"
	"stockcards/internal/pipeline"
	"stockcards/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "preview" {
		runPreview(cfg, os.Args[2:])
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	switch cmd {
	case "generate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "export file path")
		inType := fs.String("type", "", "csv|xlsx|html (default: from extension)")
		charset := fs.String("charset", cfg.InputCharset, "input charset, e.g. shift_jis (default: detect)")
		output := fs.String("output", "", "output xlsx path (default: OUTPUT_DIR/<input>.xlsx)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		out := *output
		if out == "" {
			stem := strings.TrimSuffix(filepath.Base(*input), filepath.Ext(*input))
			out = filepath.Join(cfg.OutputDir, stem+".xlsx")
		}

		in, err := pipeline.InputFromFile(*input, *inType, *charset)
		must(report(err))
		outcome, err := pipeline.NewCardService(db, cfg).Run(in, out)
		must(report(err))
		fmt.Printf("generated items=%d pages=%d charset=%s input=%s output=%s\n", outcome.Items, outcome.Pages, outcome.Charset, humanize.Bytes(uint64(len(in.Data))), out)
	case "history":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"run", "created", "status", "items", "pages", "charset", "source"})
		table.SetAutoWrapText(false)
		for _, r := range runs {
			status := string(r.Status)
			if r.Failure != "" {
				status += ": " + r.Failure
			}
			table.Append([]string{r.ID, r.CreatedAt, status, strconv.Itoa(r.Items), strconv.Itoa(r.Pages), r.Charset, r.Source})
		}
		table.Render()
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.String("run", "", "run id (default: last successful run)")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		run, err := pipeline.NewCardService(db, cfg).Reexport(*runID, *out)
		must(err)
		fmt.Printf("exported run=%s items=%d to %s\n", run.ID, run.Items, *out)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(context.Background(), *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d\n", *provider, result.Fetched, result.Stored, result.Known)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap (default: all)")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed message id=%d generated=%d failed=%d\n", res.MessageID, res.Generated, res.Failed)
			for _, out := range res.Outputs {
				fmt.Printf("  %s\n", out)
			}
			return
		}
		messages, generated, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending messages=%d generated=%d\n", messages, generated)
	case "mail:listen":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(listener.NewService(db, cfg).Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

// runPreview prints the pages of an export without touching the run history.
func runPreview(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	input := fs.String("input", "", "export file path")
	inType := fs.String("type", "", "csv|xlsx|html (default: from extension)")
	charset := fs.String("charset", cfg.InputCharset, "input charset (default: detect)")
	items := fs.Bool("items", false, "print a flat item table instead of pages")
	_ = fs.Parse(args)
	if strings.TrimSpace(*input) == "" {
		must(fmt.Errorf("--input is required"))
	}

	in, err := pipeline.InputFromFile(*input, *inType, *charset)
	must(report(err))
	session, outcome, err := pipeline.Generate(pipeline.Session{}, in, pipeline.GenerateOptions{CardsPerPage: cfg.CardsPerPage})
	must(report(err))
	if *items {
		pipeline.RenderItems(os.Stdout, session.Items)
	} else {
		pipeline.RenderPreview(os.Stdout, session.Pages, cfg.CardColumns)
	}
	fmt.Printf("items=%d pages=%d charset=%s\n", outcome.Items, outcome.Pages, outcome.Charset)
}

// report turns a generation failure into the message shown to the user.
func report(err error) error {
	if f, ok := pipeline.AsFailure(err); ok {
		return errors.New(f.Message() + " (" + f.Error() + ")")
	}
	return err
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: stockcards <command>")
	fmt.Println("commands:")
	fmt.Println("  generate --input=export.csv [--type=csv|xlsx|html] [--charset=shift_jis] [--output=cards.xlsx]")
	fmt.Println("  preview --input=export.csv [--items]")
	fmt.Println("  history [--limit=20]")
	fmt.Println("  export:xlsx [--run=<id>] --out=./out/cards.xlsx")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
