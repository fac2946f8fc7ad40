package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/chartloom/internal/ingest"
	"github.com/KaramelBytes/chartloom/internal/project"
	"github.com/spf13/cobra"
)

var (
	ingProject string
	ingLocal   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Parse documents into reference text for analyses",
	Long: `Parse documents with the hosted parsing service (LLAMA_CLOUD_API_KEY) or, with
--local, with the built-in parsers. Files are processed in order; rate-limited
requests are retried up to three times. Parsing stops at the first failure and
keeps the documents parsed before it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		p, err := loadProjectByName(ingProject)
		if err != nil {
			return err
		}
		files := make([]ingest.File, 0, len(args))
		for _, path := range args {
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			files = append(files, ingest.File{Name: filepath.Base(path), Content: b})
		}

		var (
			backend ingest.Backend = ingest.LocalBackend{}
			source                 = project.SourceLocal
		)
		if !ingLocal {
			if c.ParseAPIKey == "" {
				return ingest.ErrMissingKey
			}
			var opts []ingest.ParseOption
			if c.ParseBaseURL != "" {
				opts = append(opts, ingest.WithBaseURL(c.ParseBaseURL))
			}
			backend = ingest.NewParseClient(c.ParseAPIKey, c.HTTPTimeout(), opts...)
			source = project.SourceRemote
		}
		in := ingest.NewIngester(backend, c.IngestBaseDelay())
		in.Logger = logger

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		docs, ingErr := in.Ingest(ctx, files)
		for i, d := range docs {
			p.AddIngested(args[i], d, source)
		}
		if len(docs) > 0 {
			if err := p.Save(); err != nil {
				return err
			}
			t := newTable(os.Stdout, "Title", "Type", "Author", "Date", "Pages", "Chars")
			for _, m := range ingest.ExtractMetadata(docs) {
				t.AppendRow([]any{m.Title, m.Type, m.Author, m.Date, m.PageCount, len(m.Content)})
			}
			t.Render()
			fmt.Printf("✓ Ingested %d of %d document(s) into %s\n", len(docs), len(files), p.Name)
		}
		return ingErr
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingProject, "project", "p", "", "project name")
	ingestCmd.Flags().BoolVar(&ingLocal, "local", false, "parse offline with the built-in parsers")
}
