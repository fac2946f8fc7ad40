package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/KaramelBytes/chartloom/internal/ai"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage or inspect the model catalog and pricing",
	Example: `  chartloom models show
  chartloom models sync --file ./models.json --merge
  chartloom models sync --url https://example.com/models.json --save`,
}

var modelsShowJSON bool

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		if modelsShowJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cat)
		}
		t := newTable(os.Stdout, "Provider", "Model", "Context", "In $/1K", "Out $/1K")
		for _, m := range cat {
			t.AppendRow([]any{m.Provider, m.Name, m.ContextTokens, fmt.Sprintf("%.5f", m.InputPerK), fmt.Sprintf("%.5f", m.OutputPerK)})
		}
		t.Render()
		return nil
	},
}

var (
	syncPath  string
	syncURL   string
	syncMerge bool
	syncSave  bool
)

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load model catalog/pricing from a JSON file or URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (syncPath == "") == (syncURL == "") {
			return fmt.Errorf("specify exactly one of --file or --url")
		}
		var (
			m   map[string]ai.ModelInfo
			err error
		)
		if syncPath != "" {
			m, err = ai.LoadCatalogFromJSON(syncPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			applyCatalog(m, syncMerge)
		} else {
			m, err = fetchAndApplyCatalog(syncURL, syncMerge)
			if err != nil {
				return err
			}
		}
		if syncMerge {
			fmt.Printf("✓ Merged %d model(s) into the catalog\n", len(m))
		} else {
			fmt.Printf("✓ Replaced the catalog with %d model(s)\n", len(m))
		}
		if syncSave {
			path, err := savedCatalogPath()
			if err != nil {
				return err
			}
			b, err := utils.PrettyJSON(m)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(path, b); err != nil {
				return err
			}
			fmt.Printf("✓ Saved catalog to %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)

	modelsShowCmd.Flags().BoolVar(&modelsShowJSON, "json", false, "print the catalog as JSON")
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
	modelsSyncCmd.Flags().StringVar(&syncURL, "url", "", "URL of a JSON catalog")
	modelsSyncCmd.Flags().BoolVar(&syncMerge, "merge", false, "merge into existing catalog instead of replacing")
	modelsSyncCmd.Flags().BoolVar(&syncSave, "save", false, "save the loaded entries so later runs merge them at startup")
}
