package cmd

import (
	"os"

	"github.com/KaramelBytes/chartloom/internal/prompt"
	"github.com/spf13/cobra"
)

var tplProject string

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List example questions for `chartloom ask --template`",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cols []string
		if tplProject != "" {
			p, err := loadProjectByName(tplProject)
			if err != nil {
				return err
			}
			if refs := p.DatasetRefs(); len(refs) > 0 {
				cols = refs[0].Columns
			}
		}
		t := newTable(os.Stdout, "#", "Template")
		for i := range prompt.Templates {
			q, _ := prompt.Template(i+1, cols)
			t.AppendRow([]any{i + 1, q})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.Flags().StringVarP(&tplProject, "project", "p", "", "fill column placeholders from this project's first dataset")
}
