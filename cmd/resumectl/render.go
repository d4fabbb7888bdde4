package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/fadilmartias/cv-builder/internal/render"
	"github.com/fadilmartias/cv-builder/internal/schema"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render ParsedResume JSON to HTML or PDF",
	RunE:  runRender,
}

var (
	renderInputFile  string
	renderOutputFile string
	renderTemplate   string
	renderFormat     string
)

func init() {
	renderCmd.Flags().StringVarP(&renderInputFile, "in", "i", "", "Path to ParsedResume JSON")
	renderCmd.Flags().StringVarP(&renderOutputFile, "out", "o", "", "Output file (default stdout)")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "classic", "Template: classic, modern or minimal")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "html", "Output format: html or pdf")
	_ = renderCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(renderCmd)
}

func runRender(_ *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(renderInputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	resume, err := schema.ParseResume(raw)
	if err != nil {
		return fmt.Errorf("invalid resume JSON: %w", err)
	}
	tpl, err := render.ParseTemplate(renderTemplate)
	if err != nil {
		return err
	}

	html, err := render.NewHTMLRenderer()
	if err != nil {
		return err
	}
	page, err := html.Render(resume, tpl)
	if err != nil {
		return fmt.Errorf("failed to render resume: %w", err)
	}

	switch renderFormat {
	case "html":
		return writeOutput(renderOutputFile, []byte(page))
	case "pdf":
		pdf := render.NewPDFRenderer(config.LoadAppConfig().ChromePath, 30*time.Second)
		body, err := pdf.RenderHTMLToPDF(context.Background(), page)
		if err != nil {
			return fmt.Errorf("failed to render PDF: %w", err)
		}
		return writeOutput(renderOutputFile, body)
	}
	return fmt.Errorf("unknown format %q, use html or pdf", renderFormat)
}
