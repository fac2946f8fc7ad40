package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/chartloom/internal/analysis"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profProject    string
	profOutputPath string
	profSampleRows int
	profMaxRows    int
	profCorr       bool
	profOutliers   bool
	profOutlierThr float64
	profSheet      string
	profJSON       bool
)

var profileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Profile a dataset file, or a project's combined datasets, as Markdown",
	Long: `Print the column statistics that analyses send to the model: types, missing
values, numeric ranges and quartiles, top categories, robust outlier counts and
strongest correlations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := analysis.DefaultOptions()
		if profSampleRows >= 0 {
			opt.SampleRows = profSampleRows
		}
		opt.MaxRows = profMaxRows
		opt.Correlations = profCorr
		opt.Outliers = profOutliers
		if profOutlierThr > 0 {
			opt.OutlierThreshold = profOutlierThr
		}

		var ds *dataset.Dataset
		switch {
		case len(args) == 1:
			d, err := dataset.LoadFile(args[0], dataset.LoadOptions{MaxRows: profMaxRows, Sheet: profSheet})
			if err != nil {
				return err
			}
			ds = d
		case profProject != "":
			p, err := loadProjectByName(profProject)
			if err != nil {
				return err
			}
			d, err := combinedDataset(p)
			if err != nil {
				return err
			}
			ds = d
		default:
			return fmt.Errorf("specify a dataset file or --project")
		}

		rep := analysis.Profile(ds, opt)
		var out []byte
		if profJSON {
			b, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			out = b
		} else {
			out = []byte(rep.Markdown())
		}
		if profOutputPath != "" {
			if err := os.WriteFile(profOutputPath, out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profProject, "project", "p", "", "profile the combined datasets of this project")
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().IntVar(&profMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	profileCmd.Flags().BoolVar(&profCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	profileCmd.Flags().BoolVar(&profOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&profOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	profileCmd.Flags().StringVar(&profSheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	profileCmd.Flags().BoolVar(&profJSON, "json", false, "print the profile as JSON")
}
