package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/fadilmartias/cv-builder/internal/extraction"
	"github.com/fadilmartias/cv-builder/internal/intake"
	"github.com/fadilmartias/cv-builder/internal/service"
	"github.com/fadilmartias/cv-builder/internal/tailoring"
	"github.com/fadilmartias/cv-builder/internal/usecase"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a resume file into structured JSON",
	Long:  "Parse a PDF or TXT resume into ParsedResume JSON. With --job the result is tailored to the job description.",
	RunE:  runParse,
}

var (
	parseInputFile  string
	parseOutputFile string
	parseJobFile    string
	parseTone       string
	parseExtra      string
	parseRegexOnly  bool
	parseNoOCR      bool
)

func init() {
	parseCmd.Flags().StringVarP(&parseInputFile, "in", "i", "", "Path to the resume file (.pdf or .txt)")
	parseCmd.Flags().StringVarP(&parseOutputFile, "out", "o", "", "Path to output JSON file (default stdout)")
	parseCmd.Flags().StringVar(&parseJobFile, "job", "", "Path to a job description file to tailor for")
	parseCmd.Flags().StringVar(&parseTone, "tone", "", "Tailoring tone: Formal, Neutral or Creative")
	parseCmd.Flags().StringVar(&parseExtra, "extra", "", "Extra tailoring instructions")
	parseCmd.Flags().BoolVar(&parseRegexOnly, "regex", false, "Skip the model and use the regex extractor")
	parseCmd.Flags().BoolVar(&parseNoOCR, "no-ocr", false, "Do not OCR PDFs without a text layer")
	_ = parseCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(parseCmd)
}

func runParse(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	features := config.LoadFeatureConfig()

	resume, err := fileUpload(parseInputFile)
	if err != nil {
		return err
	}

	var client service.AIClient
	if !parseRegexOnly {
		if client, err = newAIClient(ctx); err != nil {
			return err
		}
	}
	if client == nil {
		log.Println("no model configured, using the regex extractor")
	}

	deps := usecase.ResumeDeps{
		Reader:    intake.NewReader(intake.NewFitzExtractor(!parseNoOCR)),
		Extractor: extraction.NewResumeExtractor(client, features.AITimeout),
	}
	if client != nil {
		deps.JobSpecs = &extraction.JobSpecExtractor{Client: client, Timeout: features.AITimeout}
		deps.Tailor = tailoring.New(client, features.AITimeout)
		deps.TailoringEnabled = features.Tailoring
	}
	uc := usecase.NewResumeUsecase(deps)

	req := usecase.ParseRequest{Resume: resume, Tone: parseTone, ExtraPrompt: parseExtra}
	if parseJobFile != "" {
		job, err := fileUpload(parseJobFile)
		if err != nil {
			return err
		}
		req.JobSpecFile = &job
	}

	res, err := uc.Parse(ctx, req, func(p usecase.Progress) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", p.Percent, p.Message)
	})
	if err != nil {
		return err
	}
	for _, w := range res.Meta.Warnings {
		log.Printf("warning: %s", w)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeOutput(parseOutputFile, append(out, '\n'))
}

// fileUpload reads path into an upload; the type is taken from the extension.
func fileUpload(path string) (intake.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return intake.Upload{}, fmt.Errorf("failed to read input file: %w", err)
	}
	return intake.FromBytes(filepath.Base(path), "", data), nil
}
