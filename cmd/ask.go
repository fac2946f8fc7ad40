package cmd

import (
	"crypto/sha1"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/chartloom/internal/config"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/KaramelBytes/chartloom/internal/project"
	"github.com/KaramelBytes/chartloom/internal/prompt"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	askProject     string
	askTemplate    int
	askDryRun      bool
	askStream      bool
	askProvider    string
	askModel       string
	askMaxTokens   int
	askTemperature float64
	askJSON        bool
	askNoDocs      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the model a question about the project's datasets",
	Example: `  chartloom ask -p sales "What are the main trends in this data?"
  chartloom ask -p sales --template 3
  chartloom ask -p sales --dry-run "Which region grew fastest?"
  chartloom ask -p sales --provider ollama --model llama3.1:8b-instruct --stream "Summarize the data"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		p, err := loadProjectByName(askProject)
		if err != nil {
			return err
		}
		raw := strings.Join(args, " ")
		if strings.TrimSpace(raw) == "" && askTemplate > 0 {
			if askTemplate > len(prompt.Templates) {
				return fmt.Errorf("--template must be between 1 and %d (see `chartloom templates`)", len(prompt.Templates))
			}
			raw = prompt.Templates[askTemplate-1]
		}

		sets, err := p.LoadDatasets(c.MaxRows)
		if err != nil {
			return err
		}
		question, err := insight.Question(sets, raw)
		if err != nil {
			return err
		}

		a := &insight.Analyzer{
			Model:           selectModel(p, c, askModel),
			Params:          selectParams(cmd, p, c),
			MaxPromptTokens: c.MaxPromptTokens,
			Logger:          logger,
		}
		if !askNoDocs {
			a.Documents = p.PromptDocuments()
		}

		pr, err := a.Prompt(sets, question)
		if err != nil {
			return err
		}
		if !askJSON {
			fmt.Printf("Tokens: prompt≈%d, max new tokens %d\n", pr.Tokens, a.Params.MaxNewTokens)
			if askDryRun {
				fmt.Printf("  statistics %d, documents %d, question %d, instructions %d\n",
					pr.Sections["statistics"], pr.Sections["documents"], pr.Sections["question"], pr.Sections["instructions"])
			}
			if pr.Truncated {
				fmt.Printf("⚠ Prompt truncated to %d tokens\n", c.MaxPromptTokens)
			}
			if mi, ok := ai.LookupModel(a.Model); ok {
				if pr.Tokens+a.Params.MaxNewTokens > mi.ContextTokens {
					fmt.Printf("⚠ Prompt (%d tokens) + max new tokens (%d) exceeds %s context window (~%d tokens).\n",
						pr.Tokens, a.Params.MaxNewTokens, mi.Name, mi.ContextTokens)
				}
				if cost, ok := ai.EstimateCostUSD(a.Model, pr.Tokens, a.Params.MaxNewTokens); ok && cost > 0 {
					fmt.Printf("Estimated max cost: ~$%.4f (in %.4f/out %.4f per 1K tokens)\n", cost, mi.InputPerK, mi.OutputPerK)
				}
			}
		}
		if askDryRun {
			sum := sha1.Sum([]byte(pr.Text))
			fmt.Println("\n--dry-run: no API call will be made. Prompt preview below --")
			fmt.Printf("Request ID (dry-run): sim_%x\n", sum[:6])
			fmt.Println(pr.Text)
			return nil
		}

		provider := askProvider
		if provider == "" && p.Config != nil {
			provider = p.Config.Provider
		}
		rt, err := c.Runtime(provider)
		if err != nil {
			return err
		}
		a.Runtime = rt
		if askStream && !askJSON {
			if _, ok := rt.(ai.StreamRuntime); ok {
				a.OnDelta = func(d string) { fmt.Print(d) }
			} else {
				fmt.Println("⚠ Provider does not support streaming; waiting for the full response")
			}
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		res, err := a.Analyze(ctx, sets, question)
		if a.OnDelta != nil {
			fmt.Println()
		}
		if err != nil {
			return err
		}
		rec := p.RecordAnalysis(question, res)
		if err := p.Save(); err != nil {
			return err
		}
		if askJSON {
			b, err := utils.PrettyJSON(rec)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		printInsight(res)
		fmt.Printf("✓ Analysis saved: %s\n", shortID(rec.ID))
		return nil
	},
}

func printInsight(res *insight.Result) {
	fmt.Println("\nSummary")
	fmt.Println(res.Insights.Summary)
	if len(res.Insights.KeyFindings) > 0 {
		fmt.Println("\nKey Findings")
		for _, f := range res.Insights.KeyFindings {
			fmt.Printf("  • %s\n", f)
		}
	}
	fmt.Println()
}

// selectModel resolves the model: flag, then project, then global default.
func selectModel(p *project.Project, c *cfgpkg.Global, flagModel string) string {
	if flagModel != "" {
		return flagModel
	}
	if p != nil && p.Config != nil && p.Config.Model != "" {
		return p.Config.Model
	}
	if c != nil && c.DefaultModel != "" {
		return c.DefaultModel
	}
	return ai.DefaultHFModel
}

func selectParams(cmd *cobra.Command, p *project.Project, c *cfgpkg.Global) insight.Params {
	params := c.Params()
	if p.Config != nil {
		if p.Config.MaxTokens > 0 {
			params.MaxNewTokens = p.Config.MaxTokens
		}
		if p.Config.Temperature > 0 {
			params.Temperature = p.Config.Temperature
		}
	}
	if cmd.Flags().Changed("max-tokens") && askMaxTokens > 0 {
		params.MaxNewTokens = askMaxTokens
	}
	if cmd.Flags().Changed("temperature") {
		params.Temperature = askTemperature
	}
	return params
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askProject, "project", "p", "", "project name")
	askCmd.Flags().IntVarP(&askTemplate, "template", "t", 0, "use prompt template N (see `chartloom templates`) when no question is given")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompt without calling the model")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the response as it is generated")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "inference provider: huggingface | openrouter | ollama")
	askCmd.Flags().StringVar(&askModel, "model", "", "model identifier (overrides project and config)")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "max new tokens (overrides config)")
	askCmd.Flags().Float64Var(&askTemperature, "temperature", 0, "sampling temperature (overrides config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the saved analysis as JSON")
	askCmd.Flags().BoolVar(&askNoDocs, "no-docs", false, "leave reference documents out of the prompt")
}
