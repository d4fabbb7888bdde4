// Command resumectl runs the resume pipeline from the command line without
// the HTTP server or a database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/fadilmartias/cv-builder/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "resumectl",
	Short: "Parse, tailor, render and adapt resumes locally",
	Long:  "resumectl parses resume files into structured JSON, renders stored JSON to HTML or PDF, and turns Figma designs into resume components.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newAIClient builds the configured model client. It returns nil, nil when
// no API key is set so callers can fall back to the regex extractor.
func newAIClient(ctx context.Context) (service.AIClient, error) {
	switch config.LoadFeatureConfig().AIProvider {
	case "openrouter":
		if config.LoadOpenRouterConfig().APIKey == "" {
			return nil, nil
		}
		return service.NewOpenRouterService()
	default:
		if config.LoadGeminiConfig().APIKey == "" {
			return nil, nil
		}
		gemini, err := service.NewGeminiService(ctx)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Printf("wrote %s", path)
	return nil
}
