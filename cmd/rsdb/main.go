// Command rsdb imports budget-execution archives into a SQLite database and
// runs the verification, schema export and query tools against it.
//
//	rsdb [-config project_settings.json] import
//	rsdb verify [-samples 3] [-rows 5]
//	rsdb schema [-from-json schema.json [-o schema.csv]]
//	rsdb query [-q file.sql] [-o result.csv] [-no-output]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/nao1215/rsdb"
	"github.com/nao1215/rsdb/config"
	"github.com/nao1215/rsdb/logging"
)

// maxPrintedRows bounds the query rows echoed to stdout
const maxPrintedRows = 100

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("rsdb", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", config.DefaultPath, "Settings file (JSON).")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: rsdb [-config path] import|verify|schema|query [flags]")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "import":
		err = runImport(ctx, cfg, logger, stdout)
	case "verify":
		err = runVerify(ctx, cfg, rest, stdout, stderr)
	case "schema":
		err = runSchema(ctx, cfg, rest, logger, stderr)
	case "query":
		err = runQuery(ctx, cfg, rest, logger, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.Error(cmd+" failed", zap.Error(err))
		return 1
	}
	return 0
}

func runImport(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) error {
	b := rsdb.NewBuilder().
		SourceDir(cfg.Importer.ZipFolder).
		OutputFile(cfg.Database.OutputDBFile).
		WithTablePrefix(cfg.Importer.TablePrefix).
		WithIndexTable(cfg.Importer.IndexTable).
		WithEncodings(cfg.Importer.PrimaryEncoding, cfg.Importer.FallbackEncoding).
		WithLogger(logger)
	if cfg.Importer.Split.Disabled {
		b = b.WithoutSplit()
	} else {
		b = b.WithSplitRule(rsdb.SplitRule{
			Archive:           cfg.Importer.Split.Archive,
			AmountColumn:      cfg.Importer.Split.AmountColumn,
			SummaryViewSuffix: cfg.Importer.Split.SummaryViewSuffix,
			DetailsViewSuffix: cfg.Importer.Split.DetailsViewSuffix,
		})
	}

	importer, err := b.Build(ctx)
	if err != nil {
		return err
	}
	report, err := importer.Run(ctx)
	if report != nil {
		printRunReport(stdout, report)
	}
	return err
}

func printRunReport(w io.Writer, report *rsdb.RunReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tVIEW\tROWS\tARCHIVE")
	for _, e := range report.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.TableName, e.ViewName, e.RowCount, e.OriginalFilename)
	}
	_ = tw.Flush()

	for _, a := range report.Failed() {
		fmt.Fprintf(w, "skipped %s: %v\n", a.Archive, a.Err)
	}
	for _, a := range report.Archives {
		if a.SplitErr != nil {
			fmt.Fprintf(w, "split failed %s: %v\n", a.Archive, a.SplitErr)
		}
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	fmt.Fprintf(w, "%d/%d archives imported into %s\n", len(report.Succeeded()), len(report.Archives), report.Database)
}

func runVerify(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	samples := fs.Int("samples", rsdb.DefaultSampleViews, "Number of views to sample (negative disables).")
	rows := fs.Int("rows", rsdb.DefaultSampleRows, "Rows per sampled view.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := rsdb.OpenReadOnly(ctx, cfg.Database.OutputDBFile)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := rsdb.Verify(ctx, db, rsdb.VerifyOptions{
		IndexTable:  cfg.Importer.IndexTable,
		SampleViews: *samples,
		SampleRows:  *rows,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tVIEW\tINDEXED\tTABLE ROWS\tVIEW ROWS\tSTATUS")
	for _, c := range report.Checks {
		status := "OK"
		if !c.OK() {
			status = fmt.Sprintf("ERROR: %v", c.Err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			c.Entry.TableName, c.Entry.ViewName, c.Entry.RowCount, c.TableRows, c.ViewRows, status)
	}
	_ = tw.Flush()

	for _, s := range report.Samples {
		fmt.Fprintf(stdout, "\n--- %s ---\n", s.View)
		printResult(stdout, s.Result, *rows)
	}
	if !report.OK() {
		return errors.New("verification found mismatches")
	}
	return nil
}

func runSchema(ctx context.Context, cfg *config.Config, args []string, logger *zap.Logger, stderr io.Writer) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fromJSON := fs.String("from-json", "", "Convert an exported schema JSON file to CSV instead of reading the database.")
	output := fs.String("o", "", "CSV path for -from-json. Defaults to <schema.output_base>_from_json.csv.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fromJSON != "" {
		return convertSchemaJSON(*fromJSON, *output, cfg, logger)
	}

	db, err := rsdb.OpenReadOnly(ctx, cfg.Database.OutputDBFile)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := rsdb.ExportSchema(ctx, db, cfg.Importer.IndexTable)
	if err != nil {
		return err
	}

	writers := []struct {
		ext   string
		write func(io.Writer) error
	}{
		{".json", doc.WriteJSON},
		{".yaml", doc.WriteYAML},
		{".csv", doc.WriteCSV},
	}
	for _, w := range writers {
		path := cfg.SchemaPath(w.ext)
		if err := writeFile(path, w.write); err != nil {
			return err
		}
		logger.Info("schema exported", zap.String("path", path), zap.Int("tables", len(doc)))
	}
	return nil
}

// convertSchemaJSON rewrites a schema JSON document as the flattened CSV.
func convertSchemaJSON(src, dst string, cfg *config.Config, logger *zap.Logger) error {
	f, err := os.Open(src) //nolint:gosec // path comes from the command line
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := rsdb.ReadSchemaJSON(f)
	if err != nil {
		return err
	}
	if dst == "" {
		dst = cfg.SchemaPath("_from_json.csv")
	}
	if err := writeFile(dst, doc.WriteCSV); err != nil {
		return err
	}
	logger.Info("schema converted", zap.String("from", src), zap.String("path", dst), zap.Int("tables", len(doc)))
	return nil
}

func runQuery(ctx context.Context, cfg *config.Config, args []string, logger *zap.Logger, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	queryArg := fs.String("q", "", "SQL file to run. Bare names are looked up in the query directory.")
	output := fs.String("o", "", "Result file name inside the results folder. The extension selects the format.")
	noOutput := fs.Bool("no-output", false, "Do not write the result to a file.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	queryPath := rsdb.ResolveQueryPath(*queryArg, cfg.QueryRunner.QueryDirectory, cfg.QueryRunner.DefaultQueryFile)
	query, err := rsdb.ReadQueryFile(queryPath)
	if err != nil {
		return err
	}

	db, err := rsdb.OpenReadOnly(ctx, cfg.Database.OutputDBFile)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("running query", zap.String("file", queryPath))
	result, err := rsdb.RunQuery(ctx, db, query)
	if err != nil {
		return err
	}
	printResult(stdout, result, maxPrintedRows)
	fmt.Fprintf(stdout, "%d rows\n", result.Len())

	if *noOutput {
		return nil
	}
	path := cfg.ResultPath(*output)
	if err := rsdb.ExportResult(result, path, rsdb.ExportOptionsFromPath(path)); err != nil {
		return err
	}
	logger.Info("result saved", zap.String("path", path))
	return nil
}

func printResult(w io.Writer, result *rsdb.QueryResult, limit int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range result.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for i, row := range result.StringRows() {
		if i == limit {
			break
		}
		for j, v := range row {
			if j > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, v)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the settings file
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(f)
}
