package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	addProjectName string
	addDocDesc     string
	addSheet       string
	addAsDocument  bool
)

var addCmd = &cobra.Command{
	Use:   "add <file|glob>...",
	Short: "Add datasets (CSV, TSV, JSON, XLSX) or reference documents to a project",
	Example: `  chartloom add -p sales ./q3.csv
  chartloom add -p sales './exports/*.csv.gz'
  chartloom add -p sales ./q3.xlsx --sheet Totals
  chartloom add -p sales ./brief.docx --doc --desc "campaign brief"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		p, err := loadProjectByName(addProjectName)
		if err != nil {
			return err
		}
		maxRows := 0
		if cfg != nil {
			maxRows = cfg.MaxRows
		}
		total := len(files)
		for i, file := range files {
			if total > 1 {
				fmt.Printf("[%d/%d] Adding %s...\n", i+1, total, filepath.Base(file))
			}
			if addAsDocument || !dataset.Supported(file) {
				d, err := p.AddDocument(file, addDocDesc)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Document added: %s (≈%d tokens)\n", d.Name, d.Tokens)
				continue
			}
			ref, err := p.AddDataset(file, dataset.LoadOptions{Sheet: addSheet, MaxRows: maxRows})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Dataset added: %s (%d rows, %d columns)\n", filepath.Base(file), ref.Rows, len(ref.Columns))
		}
		return p.Save()
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("no input files matched %s", arg)
			}
			matches = []string{arg}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addProjectName, "project", "p", "", "project name")
	addCmd.Flags().StringVar(&addDocDesc, "desc", "", "document description")
	addCmd.Flags().StringVar(&addSheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	addCmd.Flags().BoolVar(&addAsDocument, "doc", false, "add files as reference documents even if they are dataset formats")
}
