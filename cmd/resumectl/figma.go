package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/fadilmartias/cv-builder/internal/figma"
	"github.com/fadilmartias/cv-builder/internal/usecase"
)

var figmaCmd = &cobra.Command{
	Use:   "figma",
	Short: "Adapt a Figma design into a resume component",
	Long:  "Fetch a Figma frame, map its text layers to resume fields and write a JSX component with its CSS. Without FIGMA_TOKEN a built-in mock design is used.",
	RunE:  runFigma,
}

var (
	figmaLink       string
	figmaResumeFile string
	figmaStrategy   string
	figmaName       string
	figmaOutDir     string
	figmaMappings   []string
	figmaPreserve   []string
)

func init() {
	figmaCmd.Flags().StringVarP(&figmaLink, "link", "l", "", "Figma file or design URL")
	figmaCmd.Flags().StringVarP(&figmaResumeFile, "resume", "r", "", "Path to ParsedResume JSON")
	figmaCmd.Flags().StringVarP(&figmaStrategy, "strategy", "s", "", "preserve_layout, content_first or hybrid")
	figmaCmd.Flags().StringVar(&figmaName, "name", "", "Component name")
	figmaCmd.Flags().StringVarP(&figmaOutDir, "out-dir", "o", "", "Directory for the generated files (default FIGMA_OUTPUT_DIR)")
	figmaCmd.Flags().StringArrayVar(&figmaMappings, "map", nil, "Custom mapping node=field, repeatable")
	figmaCmd.Flags().StringArrayVar(&figmaPreserve, "preserve", nil, "Node id or name whose text is kept, repeatable")
	_ = figmaCmd.MarkFlagRequired("link")
	_ = figmaCmd.MarkFlagRequired("resume")

	rootCmd.AddCommand(figmaCmd)
}

func runFigma(_ *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(figmaResumeFile)
	if err != nil {
		return fmt.Errorf("failed to read resume file: %w", err)
	}
	mappings, err := parseMappings(figmaMappings)
	if err != nil {
		return err
	}

	cfg := config.LoadFigmaConfig()
	var source figma.Source = figma.NewMockSource()
	if cfg.Token != "" {
		source = figma.NewClient(cfg.BaseURL, cfg.Token, cfg.Timeout)
	}
	dir := figmaOutDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	agent := figma.NewAgent(source, &figma.FileWriter{Dir: dir})
	agent.Timeout = cfg.Timeout

	res, err := usecase.NewFigmaUsecase(agent).Adapt(context.Background(), usecase.AdaptRequest{
		FigmaLink:        figmaLink,
		ResumeData:       raw,
		Strategy:         figmaStrategy,
		CustomMappings:   mappings,
		PreserveElements: figmaPreserve,
		ComponentName:    figmaName,
	})
	if res != nil {
		for _, w := range res.Warnings {
			log.Printf("warning: %s", w)
		}
		for _, f := range res.SavedFiles {
			log.Printf("wrote %s", f)
		}
	}
	if err != nil {
		return err
	}

	summary, err := json.MarshalIndent(struct {
		State    figma.State     `json:"state"`
		Source   string          `json:"source"`
		Name     string          `json:"component"`
		Mappings []figma.Mapping `json:"mappings"`
	}{res.State, res.Source, res.Component.Name, res.Mappings}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeOutput("", append(summary, '\n'))
}

func parseMappings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		node, field, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(node) == "" || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid --map %q, want node=field", p)
		}
		out[strings.TrimSpace(node)] = strings.TrimSpace(field)
	}
	return out, nil
}
