package figma

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/schema"
	"github.com/fadilmartias/cv-builder/internal/service"
)

type State string

const (
	StateIdle                State = "idle"
	StateFetchingFileInfo    State = "fetching_file_info"
	StateFetchingNodes       State = "fetching_nodes"
	StateMappingContent      State = "mapping_content"
	StateExtractingStyles    State = "extracting_styles"
	StateGeneratingComponent State = "generating_component"
	StateSuccess             State = "success"
	StateFailed              State = "failed"
)

const DefaultTimeout = 30 * time.Second

type Request struct {
	Link             string
	Resume           *schema.ParsedResume
	CustomMappings   map[string]string
	PreserveElements []string
	ColorScheme      map[string]string
	Strategy         Strategy
	ComponentName    string
}

type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

type Result struct {
	State       State        `json:"state"`
	Source      string       `json:"source"`
	FileKey     string       `json:"fileKey,omitempty"`
	NodeID      string       `json:"nodeId,omitempty"`
	FileName    string       `json:"fileName,omitempty"`
	Component   *Component   `json:"component,omitempty"`
	Mappings    []Mapping    `json:"mappings,omitempty"`
	Styles      *Styles      `json:"styles,omitempty"`
	SavedFiles  []string     `json:"savedFiles,omitempty"`
	Warnings    []string     `json:"warnings"`
	Errors      []string     `json:"errors"`
	Transitions []Transition `json:"transitions"`
}

// Agent runs one adaptation at a time per call; it holds no per-run state.
type Agent struct {
	Source  Source
	Writer  *FileWriter
	Timeout time.Duration
}

func NewAgent(source Source, writer *FileWriter) *Agent {
	return &Agent{Source: source, Writer: writer, Timeout: DefaultTimeout}
}

// Ready reports whether the design source is reachable.
func (a *Agent) Ready(ctx context.Context) error {
	return a.Source.Check(ctx)
}

type run struct {
	res *Result
}

func (r *run) to(s State) {
	r.res.Transitions = append(r.res.Transitions, Transition{From: r.res.State, To: s, At: time.Now()})
	r.res.State = s
}

func (r *run) fail(err error) (*Result, error) {
	r.res.Errors = append(r.res.Errors, err.Error())
	r.to(StateFailed)
	return r.res, err
}

// Run adapts the design behind req.Link to req.Resume. The returned Result is
// never nil; on failure its State is StateFailed and err says why.
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	r := &run{res: &Result{State: StateIdle, Source: a.Source.Name(), Warnings: []string{}, Errors: []string{}}}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	link, err := ParseLink(req.Link)
	if err != nil {
		return r.fail(err)
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyPreserveLayout
	}
	r.res.FileKey, r.res.NodeID = link.FileKey, link.NodeID

	r.to(StateFetchingFileInfo)
	file, err := a.Source.GetFile(ctx, link.FileKey)
	if err != nil {
		return r.fail(sourceError(err, "fetch file"))
	}
	r.res.FileName = file.Name

	r.to(StateFetchingNodes)
	var roots []*Node
	if link.NodeID != "" {
		roots, err = a.Source.GetNodes(ctx, link.FileKey, []string{link.APINodeID()})
		if err != nil {
			return r.fail(sourceError(err, "fetch nodes"))
		}
	} else {
		roots = firstPageFrames(file.Document)
	}
	if len(roots) == 0 {
		return r.fail(apperror.New(apperror.CodeAdaptationFailed, "design has no frames to adapt"))
	}

	r.to(StateMappingContent)
	mappings, err := MapContent(roots, req.Resume, MappingOptions{
		CustomMappings:   req.CustomMappings,
		PreserveElements: req.PreserveElements,
	})
	if err != nil {
		return r.fail(err)
	}
	r.res.Mappings = mappings
	if missing := UnmappedFields(req.Resume, mappings); len(missing) > 0 && strategy == StrategyPreserveLayout {
		for _, f := range missing {
			r.res.Warnings = append(r.res.Warnings, "no design element for "+string(f))
		}
	}

	r.to(StateExtractingStyles)
	styles, warnings := ExtractStyles(roots, req.ColorScheme)
	r.res.Styles = &styles
	r.res.Warnings = append(r.res.Warnings, warnings...)

	r.to(StateGeneratingComponent)
	if err := ctx.Err(); err != nil {
		return r.fail(apperror.Wrap(apperror.CodeExternalService, "Figma adaptation timed out", err))
	}
	comp, err := Generate(ComponentName(req.ComponentName, file.Name), roots, mappings, styles, strategy, req.Resume)
	if err != nil {
		return r.fail(apperror.Wrap(apperror.CodeAdaptationFailed, "component generation failed", err))
	}
	r.res.Component = &comp

	if a.Writer != nil {
		paths, err := a.Writer.Save(comp)
		if err != nil {
			log.Printf("figma: save component %s: %v", comp.Name, err)
			r.res.Warnings = append(r.res.Warnings, "generated files were not saved: "+err.Error())
		}
		r.res.SavedFiles = paths
	}

	r.to(StateSuccess)
	return r.res, nil
}

func firstPageFrames(doc *Node) []*Node {
	if doc == nil {
		return nil
	}
	for _, page := range doc.Children {
		if len(page.Children) > 0 {
			return page.Children
		}
	}
	return nil
}

func sourceError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.CodeExternalService, "Figma adaptation timed out", err)
	}
	var pe *service.ProviderError
	if !errors.As(err, &pe) {
		return apperror.Wrap(apperror.CodeAdaptationFailed, fmt.Sprintf("Figma %s failed", op), err)
	}
	switch {
	case pe.RateLimited():
		return apperror.Wrap(apperror.CodeRateLimited, "Figma rate limit reached, please try again later", err)
	case pe.AccessDenied():
		return apperror.Wrap(apperror.CodeExternalAccessDenied, "Figma denied access to this file", err)
	case pe.NotFound():
		return apperror.Wrap(apperror.CodeExternalNotFound, "Figma file or node not found", err)
	}
	return apperror.Wrap(apperror.CodeExternalService, fmt.Sprintf("Figma %s failed", op), err)
}
