package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/project"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chProject string
	chKind    string
	chX       string
	chY       string
	chTitle   string
	chXLabel  string
	chYLabel  string
	chHTML    string
	chPNG     string
	chJSON    bool
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Select a chart kind and columns, then print or render the chart",
	Long: `Select a chart kind and columns. The selection is saved with the project and
reused by later runs and by export. Without an output flag the aggregated series
is printed as a table.`,
	Example: `  chartloom chart -p sales --kind bar --x region --y revenue
  chartloom chart -p sales --kind pie --x region --png pie.png
  chartloom chart -p sales --html chart.html
  chartloom chart -p sales --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProjectByName(chProject)
		if err != nil {
			return err
		}
		view, err := applyViewFlags(cmd, p.View)
		if err != nil {
			return err
		}
		ds, err := combinedDataset(p)
		if err != nil {
			return err
		}
		if view != p.View {
			p.SetView(view)
			if err := p.Save(); err != nil {
				return err
			}
		}
		if !view.CanShow() {
			return fmt.Errorf("%w (kind %s; available columns: %s)", chart.ErrIncompleteSelection, view.Kind, strings.Join(ds.Columns, ", "))
		}
		fig, err := view.Figure(ds, chartConfig())
		if err != nil {
			return err
		}

		if chJSON {
			b, err := utils.PrettyJSON(fig)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		wrote := false
		if chHTML != "" {
			var buf bytes.Buffer
			if err := chart.RenderHTML(&buf, fig); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(chHTML, buf.Bytes()); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote interactive chart to %s\n", chHTML)
			wrote = true
		}
		if chPNG != "" {
			var buf bytes.Buffer
			if err := chart.RenderPNG(&buf, fig); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(chPNG, buf.Bytes()); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote chart image to %s\n", chPNG)
			wrote = true
		}
		if !wrote {
			printFigure(fig)
		}
		return nil
	},
}

// applyViewFlags updates v from the kind and column flags set on cmd.
func applyViewFlags(cmd *cobra.Command, v chart.ViewState) (chart.ViewState, error) {
	f := cmd.Flags()
	if f.Changed("kind") {
		k := chart.Kind(strings.ToLower(strings.TrimSpace(chKind)))
		if !k.Valid() {
			return v, fmt.Errorf("unsupported --kind %q (use bar, line, pie or scatter)", chKind)
		}
		v = v.WithKind(k)
	}
	if v.Kind == "" {
		v.Kind = chart.Bar
	}
	if f.Changed("x") {
		v = v.WithColumn(chart.AxisX, chX)
	}
	if f.Changed("y") {
		v = v.WithColumn(chart.AxisY, chY)
	}
	return v, nil
}

func chartConfig() chart.Config {
	c := chart.DefaultConfig()
	c.Title, c.XAxisLabel, c.YAxisLabel = chTitle, chXLabel, chYLabel
	return c
}

// combinedDataset loads every dataset of p and merges them.
func combinedDataset(p *project.Project) (*dataset.Dataset, error) {
	maxRows := 0
	if cfg != nil {
		maxRows = cfg.MaxRows
	}
	sets, err := p.LoadDatasets(maxRows)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, errors.New("project has no datasets; add one with `chartloom add`")
	}
	return dataset.Combine(sets...), nil
}

func printFigure(fig *chart.Figure) {
	if fig.Title != "" {
		fmt.Println(fig.Title)
	}
	if fig.Kind == chart.Scatter {
		t := newTable(os.Stdout, "X", "Y")
		for _, s := range fig.Data.Series {
			for _, pt := range s.Points {
				t.AppendRow([]any{pt.X, chart.FormatValue(pt.Y)})
			}
		}
		t.Render()
		return
	}
	t := newTable(os.Stdout, "Label", "Value", "Tooltip")
	for si, s := range fig.Data.Series {
		for i, v := range s.Values {
			label := ""
			if i < len(fig.Data.Labels) {
				label = fig.Data.Labels[i]
			}
			t.AppendRow([]any{label, chart.FormatValue(v), fig.Options.TooltipLabel(fig.Data, si, i)})
		}
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chProject, "project", "p", "", "project name")
	chartCmd.Flags().StringVar(&chKind, "kind", "", "chart kind: bar | line | pie | scatter")
	chartCmd.Flags().StringVar(&chX, "x", "", "category column")
	chartCmd.Flags().StringVar(&chY, "y", "", "numeric column (optional for pie)")
	chartCmd.Flags().StringVar(&chTitle, "title", "", "chart title")
	chartCmd.Flags().StringVar(&chXLabel, "x-label", "", "x axis label (default column name)")
	chartCmd.Flags().StringVar(&chYLabel, "y-label", "", "y axis label (default column name)")
	chartCmd.Flags().StringVar(&chHTML, "html", "", "write an interactive HTML chart to this path")
	chartCmd.Flags().StringVar(&chPNG, "png", "", "write a PNG chart to this path")
	chartCmd.Flags().BoolVar(&chJSON, "json", false, "print the formatted series and options as JSON")
}
