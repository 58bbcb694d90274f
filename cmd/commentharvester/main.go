// cmd/commentharvester/main.go
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/valpere/CommentHarvester/internal/config"
	"github.com/valpere/CommentHarvester/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: commentharvester run <config.yaml>\n")
			os.Exit(1)
		}
		runCommand(os.Args[2])

	case "serve":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: commentharvester serve <config.yaml>\n")
			os.Exit(1)
		}
		serveCommand(os.Args[2])

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: commentharvester validate <config.yaml>\n")
			os.Exit(1)
		}
		validateCommand(os.Args[2])

	case "template":
		template, err := generateTemplate(os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(template)

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

func validateCommand(configFile string) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", utils.UserMessage(err))
		if hasFlag("-v") || hasFlag("--verbose") {
			fmt.Fprintf(os.Stderr, "Detail: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Configuration '%s' is valid\n", cfg.Name)
	fmt.Printf("  target: %s\n", cfg.Target.PostURL)
	fmt.Printf("  outputs: %d\n", len(cfg.Outputs))
}

// generateTemplate prints a starter configuration.
func generateTemplate(args []string) (string, error) {
	postURL := "https://www.linkedin.com/posts/example_activity-0000000000"
	if len(args) > 0 && args[0] == "--post-url" && len(args) > 1 {
		postURL = args[1]
	}

	cfg := config.Default(postURL)
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal template to YAML: %w", err)
	}
	return string(yamlData), nil
}

func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println("CommentHarvester - Email harvesting from social post comment threads")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  commentharvester run <config.yaml>       Run one scan and export the results")
	fmt.Println("  commentharvester serve <config.yaml>     Start the HTTP API and wait for scan commands")
	fmt.Println("  commentharvester validate <config.yaml>  Validate a configuration file")
	fmt.Println("  commentharvester template                Print a starter configuration")
	fmt.Println("  commentharvester version                 Show version information")
	fmt.Println("  commentharvester help                    Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose                            Enable verbose output")
}

func printVersion() {
	fmt.Printf("CommentHarvester %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
