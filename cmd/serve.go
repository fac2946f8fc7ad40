package cmd

import (
	"fmt"

	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/KaramelBytes/chartloom/internal/server"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	srvAddr     string
	srvProvider string
	srvModel    string
	srvProject  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON HTTP API",
	Example: `  chartloom serve
  chartloom serve --addr 127.0.0.1:9000 --project sales`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		rt, err := c.Runtime(srvProvider)
		if err != nil {
			return err
		}
		model := srvModel
		if model == "" {
			model = c.DefaultModel
		}
		a := &insight.Analyzer{
			Runtime:         rt,
			Model:           model,
			Params:          c.Params(),
			MaxPromptTokens: c.MaxPromptTokens,
			Logger:          logger,
		}
		s := server.New(a, server.Options{
			CORSOrigins: c.CORSOrigins,
			MaxRows:     c.MaxRows,
			Logger:      logger,
		})
		if srvProject != "" {
			p, err := loadProjectByName(srvProject)
			if err != nil {
				return err
			}
			sets, err := p.LoadDatasets(c.MaxRows)
			if err != nil {
				return err
			}
			for _, ds := range sets {
				id := uuid.NewString()
				s.AddDataset(id, ds)
				fmt.Printf("✓ Loaded %s as %s\n", ds.Name, id)
			}
			a.Documents = p.PromptDocuments()
		}

		addr := srvAddr
		if addr == "" {
			addr = c.ServerAddr
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		fmt.Printf("✓ Serving on %s\n", addr)
		return s.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&srvProvider, "provider", "", "inference provider")
	serveCmd.Flags().StringVar(&srvModel, "model", "", "model identifier")
	serveCmd.Flags().StringVarP(&srvProject, "project", "p", "", "preload the datasets and documents of this project")
}
