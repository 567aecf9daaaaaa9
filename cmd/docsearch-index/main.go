package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github/itish2003/docsearch/config"
	"github/itish2003/docsearch/models"
	"github/itish2003/docsearch/services"
	"github/itish2003/docsearch/store"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docsearch-index",
	Short: "Batch indexing and search against the docsearch vector store",
	Long: `docsearch-index runs the docsearch ingestion pipeline without the HTTP
server: index a folder of PDFs, watch a folder for new ones, or query the
collection directly.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			log.SetOutput(io.Discard)
		}
	},
}

var indexCmd = &cobra.Command{
	Use:   "index <folder>",
	Short: "Index every PDF directly inside a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(p *pipeline) error {
			report, err := p.indexer.IndexFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", report.Failed, report.Attempted)
			}
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <folder>",
	Short: "Index PDFs as they appear in a folder until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log.SetOutput(os.Stderr)
		return withPipeline(cmd.Context(), func(p *pipeline) error {
			return p.indexer.WatchDirectory(cmd.Context(), args[0])
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Print the ids of the documents most similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(p *pipeline) error {
			ids, err := p.documents.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSearch(cmd.OutOrStdout(), args[0], ids)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <doc-id>",
	Short: "Print the stored text of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(p *pipeline) error {
			doc, err := p.documents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.Content)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (default $CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show pipeline logs")

	rootCmd.AddCommand(indexCmd, watchCmd, searchCmd, getCmd)
}

type pipeline struct {
	documents services.DocumentService
	indexer   *services.FolderIndexer
}

// withPipeline connects to the configured store and embedder, runs fn and
// closes the store.
func withPipeline(ctx context.Context, fn func(p *pipeline) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	services.SetPDFLicense(cfg.UnidocLicenseKey)

	vectorStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to connect to %s vector store: %w", cfg.Store.Type, err)
	}
	defer vectorStore.Close()

	embedder, err := services.NewEmbedder(ctx, cfg.Embedder, cfg.Store.Dimension)
	if err != nil {
		return err
	}

	documents := services.NewDocumentService(embedder, services.NewPDFExtractor(), vectorStore)
	return fn(&pipeline{
		documents: documents,
		indexer:   services.NewFolderIndexer(documents),
	})
}

func printReport(w io.Writer, report *models.IndexFolderReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, f := range report.Files {
		if f.Error != "" {
			fmt.Fprintf(w, "%s %s: %s\n", red("FAIL"), f.File, f.Error)
			continue
		}
		fmt.Fprintf(w, "%s   %s -> %s\n", green("OK"), f.File, f.DocID)
	}
	fmt.Fprintf(w, "%s %d attempted, %s, %s\n",
		bold("Indexed folder:"),
		report.Attempted,
		green(fmt.Sprintf("%d indexed", report.Indexed)),
		red(fmt.Sprintf("%d failed", report.Failed)))
}

func printSearch(w io.Writer, query string, ids []string) {
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", boldCyan("Query:"), query)
	if len(ids) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	for i, id := range ids {
		fmt.Fprintf(w, "%2d. %s\n", i+1, id)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
