package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/project"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	listProjects bool
	listDatasets bool
	listDocs     bool
	listAnalyses bool
	listProjName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, or the datasets, documents or analyses of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 0
		for _, b := range []bool{listProjects, listDatasets, listDocs, listAnalyses} {
			if b {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("specify exactly one of --projects, --datasets, --docs or --analyses")
		}
		if listProjects {
			return listAllProjects()
		}
		if listProjName == "" {
			return fmt.Errorf("--project is required when listing project contents")
		}
		p, err := loadProjectByName(listProjName)
		if err != nil {
			return err
		}
		switch {
		case listDatasets:
			listProjectDatasets(p)
		case listDocs:
			listProjectDocs(p)
		default:
			listProjectAnalyses(p)
		}
		return nil
	},
}

func listAllProjects() error {
	root, err := defaultProjectsDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	t := newTable(os.Stdout, "Project", "Datasets", "Documents", "Analyses")
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), utils.ProjectFile)); err != nil {
			continue
		}
		p, err := project.LoadProject(filepath.Join(root, e.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: skipping %s: %v\n", e.Name(), err)
			continue
		}
		t.AppendRow([]any{p.Name, len(p.Datasets), len(p.Documents), len(p.Analyses)})
		found = true
	}
	if !found {
		fmt.Println("(no projects)")
		return nil
	}
	t.Render()
	return nil
}

func listProjectDatasets(p *project.Project) {
	refs := p.DatasetRefs()
	if len(refs) == 0 {
		fmt.Println("(no datasets)")
		return
	}
	t := newTable(os.Stdout, "ID", "Name", "Rows", "Columns")
	for _, r := range refs {
		t.AppendRow([]any{shortID(r.ID), r.Name, r.Rows, strings.Join(r.Columns, ", ")})
	}
	t.Render()
}

func listProjectDocs(p *project.Project) {
	if len(p.Documents) == 0 {
		fmt.Println("(no documents)")
		return
	}
	ids := make([]string, 0, len(p.Documents))
	for id := range p.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	t := newTable(os.Stdout, "ID", "Name", "Source", "Tokens", "Description")
	for _, id := range ids {
		d := p.Documents[id]
		t.AppendRow([]any{shortID(d.ID), d.Name, d.Source, d.Tokens, d.Description})
	}
	t.Render()
}

func listProjectAnalyses(p *project.Project) {
	if len(p.Analyses) == 0 {
		fmt.Println("(no analyses)")
		return
	}
	t := newTable(os.Stdout, "ID", "Created", "Prompt", "Findings")
	for _, a := range p.Analyses {
		findings := 0
		if a.Result != nil {
			findings = len(a.Result.Insights.KeyFindings)
		}
		t.AppendRow([]any{shortID(a.ID), a.CreatedAt.Format("2006-01-02 15:04"), truncate(a.Prompt, 60), findings})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listProjects, "projects", false, "list projects")
	listCmd.Flags().BoolVar(&listDatasets, "datasets", false, "list datasets in a project")
	listCmd.Flags().BoolVar(&listDocs, "docs", false, "list documents in a project")
	listCmd.Flags().BoolVar(&listAnalyses, "analyses", false, "list analyses in a project")
	listCmd.Flags().StringVarP(&listProjName, "project", "p", "", "project name")
}
