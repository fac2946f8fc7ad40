package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/ingest"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/KaramelBytes/chartloom/internal/parser"
	"github.com/KaramelBytes/chartloom/internal/prompt"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/google/uuid"
)

// Document sources.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Project is a chartloom workspace persisted as project.json.
type Project struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Datasets    map[string]*DatasetRef `json:"datasets"`
	Documents   map[string]*Document   `json:"documents"`
	View        chart.ViewState        `json:"view"`
	Analyses    []*Analysis            `json:"analyses"`
	Config      *ProjectConfig         `json:"config"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// ProjectConfig overrides global model settings for one project.
type ProjectConfig struct {
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Analysis is one answered question.
type Analysis struct {
	ID        string          `json:"id"`
	Prompt    string          `json:"prompt"`
	Result    *insight.Result `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*DatasetRef),
		Documents:   make(map[string]*Document),
		View:        chart.ViewState{Kind: chart.Bar},
		// Leave Config fields empty to inherit from global defaults unless explicitly set per project.
		Config:    &ProjectConfig{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		rootDir:   rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, utils.ProjectFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*DatasetRef)
	}
	if p.Documents == nil {
		p.Documents = make(map[string]*Document)
	}
	p.rootDir = dir
	return &p, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, utils.ProjectFile), data)
}

// AddDataset loads the file once to record its columns and row count.
func (p *Project) AddDataset(path string, opt dataset.LoadOptions) (*DatasetRef, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	ds, err := dataset.LoadFile(abs, opt)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	ref := &DatasetRef{
		ID:      uuid.NewString(),
		Path:    abs,
		Name:    ds.Name,
		Sheet:   opt.Sheet,
		Columns: ds.Columns,
		Rows:    ds.Len(),
		AddedAt: time.Now(),
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*DatasetRef)
	}
	p.Datasets[ref.ID] = ref
	p.UpdatedAt = time.Now()
	return ref, nil
}

// DatasetRefs returns the datasets in the order they were added.
func (p *Project) DatasetRefs() []*DatasetRef {
	out := make([]*DatasetRef, 0, len(p.Datasets))
	for _, r := range p.Datasets {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LoadDatasets reads every dataset from disk in added order.
func (p *Project) LoadDatasets(maxRows int) ([]*dataset.Dataset, error) {
	refs := p.DatasetRefs()
	out := make([]*dataset.Dataset, 0, len(refs))
	for _, r := range refs {
		ds, err := dataset.LoadFile(r.Path, dataset.LoadOptions{MaxRows: maxRows, Sheet: r.Sheet})
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", r.Name, err)
		}
		out = append(out, ds)
	}
	return out, nil
}

// AddDocument parses a local file and caches its text.
func (p *Project) AddDocument(path, description string) (*Document, error) {
	parsed, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	d := &Document{
		ID:          uuid.NewString(),
		Path:        path,
		Name:        filepath.Base(path),
		Description: description,
		Content:     parsed,
		Tokens:      parser.EstimateTokens(parsed),
		Source:      SourceLocal,
		AddedAt:     info.ModTime(),
	}
	p.putDocument(d)
	return d, nil
}

// AddIngested stores a document produced by an ingestion backend.
func (p *Project) AddIngested(path string, doc *ingest.Document, source string) *Document {
	d := &Document{
		ID:       uuid.NewString(),
		Path:     path,
		Name:     doc.Name,
		Content:  doc.Text,
		Tokens:   parser.EstimateTokens(doc.Text),
		Source:   source,
		Metadata: doc.Metadata,
		AddedAt:  time.Now(),
	}
	p.putDocument(d)
	return d
}

func (p *Project) putDocument(d *Document) {
	if p.Documents == nil {
		p.Documents = make(map[string]*Document)
	}
	p.Documents[d.ID] = d
	p.UpdatedAt = time.Now()
}

// PromptDocuments returns the cached documents for prompt assembly.
func (p *Project) PromptDocuments() []prompt.Document {
	out := make([]prompt.Document, 0, len(p.Documents))
	for _, d := range p.Documents {
		name := d.Name
		if d.Description != "" {
			name += " (" + d.Description + ")"
		}
		out = append(out, prompt.Document{Name: name, Content: d.Content})
	}
	return out
}

// SetView replaces the saved chart selection.
func (p *Project) SetView(v chart.ViewState) {
	p.View = v
	p.UpdatedAt = time.Now()
}

// RecordAnalysis appends a completed analysis.
func (p *Project) RecordAnalysis(question string, res *insight.Result) *Analysis {
	a := &Analysis{ID: uuid.NewString(), Prompt: question, Result: res, CreatedAt: time.Now()}
	p.Analyses = append(p.Analyses, a)
	p.UpdatedAt = time.Now()
	return a
}

// LatestAnalysis returns the most recent analysis.
func (p *Project) LatestAnalysis() (*Analysis, bool) {
	if len(p.Analyses) == 0 {
		return nil, false
	}
	return p.Analyses[len(p.Analyses)-1], true
}

// FindAnalysis looks an analysis up by id or unique id prefix.
func (p *Project) FindAnalysis(id string) (*Analysis, bool) {
	var found *Analysis
	for _, a := range p.Analyses {
		if a.ID == id {
			return a, true
		}
		if len(id) >= 4 && len(a.ID) > len(id) && a.ID[:len(id)] == id {
			if found != nil {
				return nil, false
			}
			found = a
		}
	}
	return found, found != nil
}
