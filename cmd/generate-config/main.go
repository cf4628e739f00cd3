package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/debemdeboas/postdesk/internal/config"
)

func main() {
	// Create a config with defaults applied
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	// Write to file or stdout
	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	data, err := config.Marshal(outputFile, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating config: %v\n", err)
		os.Exit(1)
	}

	output := header(outputFile) + string(data)

	if outputFile == "-" {
		fmt.Print(output)
		return
	}
	if err := os.WriteFile(outputFile, []byte(output), 0644); err != nil {
		fmt.Fprintf(os.Stderr, config.ErrWriteConfigContentFmt+"\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}

func header(path string) string {
	lines := []string{
		"postdesk configuration example",
		"Copy this file to config.yaml (or config.toml) and customize as needed",
		"Secrets are read from the environment or a .env file:",
		"  " + strings.Join([]string{config.EnvTelegramToken, config.EnvS3AccessKey, config.EnvS3SecretKey, config.EnvRedisURL}, ", "),
	}
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString("# " + l + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
