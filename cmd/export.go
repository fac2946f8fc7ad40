package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/export"
	"github.com/KaramelBytes/chartloom/internal/project"
	"github.com/spf13/cobra"
)

var (
	expProject  string
	expAnalysis string
	expOutDir   string
	expS3       bool
	expS3Bucket string
	expS3Prefix string
	expName     string
)

var exportCmd = &cobra.Command{
	Use:   "export <pdf|docx|png|json|all>...",
	Short: "Export the latest (or a chosen) analysis and the current chart",
	Example: `  chartloom export -p sales pdf
  chartloom export -p sales pdf docx --out ./reports
  chartloom export -p sales json --analysis 3f2a
  chartloom export -p sales all --s3 --s3-bucket team-reports`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formats, err := parseFormats(args)
		if err != nil {
			return err
		}
		p, err := loadProjectByName(expProject)
		if err != nil {
			return err
		}
		rep, err := buildReport(p, expAnalysis)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		sink, err := exportSink(cmd)
		if err != nil {
			return err
		}
		name := expName
		if name == "" {
			name = p.Name
		}
		for _, f := range formats {
			var buf bytes.Buffer
			if err := export.Write(&buf, f, rep); err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}
			loc, err := sink.Put(ctx, f.Filename(name), f.ContentType(), buf.Bytes())
			if err != nil {
				return err
			}
			fmt.Printf("✓ Exported %s: %s\n", f, loc)
		}
		return nil
	},
}

func parseFormats(args []string) ([]export.Format, error) {
	var out []export.Format
	seen := map[export.Format]bool{}
	for _, a := range args {
		if a == "all" {
			for _, f := range export.Formats {
				if !seen[f] {
					seen[f] = true
					out = append(out, f)
				}
			}
			continue
		}
		f, err := export.ParseFormat(a)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// buildReport gathers the analysis, records and saved chart of p.
func buildReport(p *project.Project, analysisID string) (export.Report, error) {
	rep := export.Report{Now: time.Now()}
	var (
		a  *project.Analysis
		ok bool
	)
	if analysisID != "" {
		if a, ok = p.FindAnalysis(analysisID); !ok {
			return rep, fmt.Errorf("analysis %q not found (see `chartloom list --analyses`)", analysisID)
		}
	} else {
		a, ok = p.LatestAnalysis()
	}
	if ok {
		rep.Result = a.Result
	}
	if len(p.Datasets) == 0 {
		return rep, nil
	}
	ds, err := combinedDataset(p)
	if err != nil {
		return rep, err
	}
	rep.Records = ds.Records
	if p.View.CanShow() {
		fig, err := p.View.Figure(ds, chart.DefaultConfig())
		if err != nil {
			return rep, err
		}
		rep.Figure = fig
	}
	return rep, nil
}

func exportSink(cmd *cobra.Command) (export.Sink, error) {
	if !expS3 {
		return export.DirSink{Dir: expOutDir}, nil
	}
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	s3cfg := c.S3
	if cmd.Flags().Changed("s3-bucket") {
		s3cfg.Bucket = expS3Bucket
	}
	if cmd.Flags().Changed("s3-prefix") {
		s3cfg.Prefix = expS3Prefix
	}
	if s3cfg.Bucket == "" {
		return nil, fmt.Errorf("--s3 needs a bucket: set s3.bucket in config, CHARTLOOM_S3_BUCKET or --s3-bucket")
	}
	return export.NewS3Sink(cmd.Context(), s3cfg)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expProject, "project", "p", "", "project name")
	exportCmd.Flags().StringVar(&expAnalysis, "analysis", "", "analysis id or prefix (default latest)")
	exportCmd.Flags().StringVarP(&expOutDir, "out", "o", ".", "output directory")
	exportCmd.Flags().BoolVar(&expS3, "s3", false, "upload to S3 instead of writing files")
	exportCmd.Flags().StringVar(&expS3Bucket, "s3-bucket", "", "S3 bucket (overrides config)")
	exportCmd.Flags().StringVar(&expS3Prefix, "s3-prefix", "", "S3 key prefix (overrides config)")
	exportCmd.Flags().StringVar(&expName, "name", "", "file name prefix (default project name)")
}
