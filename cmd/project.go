package cmd

import (
	"fmt"

	"github.com/KaramelBytes/chartloom/internal/ai"
	"github.com/KaramelBytes/chartloom/internal/project"
	"github.com/spf13/cobra"
)

var (
	pmProject  string
	pmProvider string
	pmClear    bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage per-project settings",
}

var projectSetModelCmd = &cobra.Command{
	Use:   "set-model <model>",
	Short: "Set or clear a project's default model and provider",
	Example: `  chartloom project set-model -p sales mistralai/Mistral-7B-Instruct-v0.3
  chartloom project set-model -p sales --provider ollama llama3.1:8b-instruct
  chartloom project set-model -p sales --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if p.Config == nil {
			p.Config = &project.ProjectConfig{}
		}
		if pmClear {
			p.Config.Model = ""
			p.Config.Provider = ""
		} else {
			if len(args) == 0 || args[0] == "" {
				return fmt.Errorf("model is required unless --clear is set")
			}
			p.Config.Model = args[0]
			if cmd.Flags().Changed("provider") {
				name := ai.NormalizeProvider(pmProvider)
				if !ai.KnownProvider(name) {
					return fmt.Errorf("unknown --provider: %s", pmProvider)
				}
				p.Config.Provider = name
			}
		}
		if err := p.Save(); err != nil {
			return err
		}
		if pmClear {
			fmt.Printf("✓ Cleared project model for %s\n", p.Name)
		} else {
			fmt.Printf("✓ Set project model for %s: %s\n", p.Name, p.Config.Model)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectSetModelCmd)

	projectSetModelCmd.Flags().StringVarP(&pmProject, "project", "p", "", "project name")
	projectSetModelCmd.Flags().StringVar(&pmProvider, "provider", "", "provider for this project (huggingface, openrouter, ollama)")
	projectSetModelCmd.Flags().BoolVar(&pmClear, "clear", false, "clear the project's model override")
}
