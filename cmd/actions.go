package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sahilm/fuzzy"

	"licman/internal/bundle"
	"licman/internal/config"
	"licman/internal/logtail"
	"licman/internal/services"
)

func runAction(cfg *config.Config, op, key string) int {
	def, _ := cfg.Service(key)
	ctrl := services.NewController(services.NewBackend())
	ctx := context.Background()

	fmt.Printf("%s %s (%s)...\n", op, def.Key, def.Name)

	var result services.OperationResult
	switch op {
	case "start":
		result = ctrl.Start(ctx, def)
	case "stop":
		result = ctrl.Stop(ctx, def)
	case "restart":
		result = ctrl.Restart(ctx, def)
	}

	printResult(def, result)
	return exitCodeFor(result)
}

func printResult(def services.ServiceDefinition, result services.OperationResult) {
	if result.Succeeded {
		fmt.Printf("%s %s: %s %s\n", okMark(), def.Key, result.Detail, result.FinalState.Symbol())
		if result.PartialCleanup() {
			fmt.Fprintf(os.Stderr, "Warning: cleanup was incomplete: %s\n", result.Cleanup.Summary())
		}
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s: %s\n", failMark(), def.Key, result.Detail)
}

func runOpenAdmin(cfg *config.Config) int {
	path := cfg.Zoo.AdminExePath
	if path == "" || !services.NewBackend().PathExists(path) {
		fmt.Fprintf(os.Stderr, "Error: Zoo admin executable not found: %s\n", path)
		return exitFailure
	}
	if err := services.LaunchDetached(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening Zoo admin: %v\n", err)
		return exitFailure
	}
	fmt.Printf("Opened %s\n", path)
	return exitOK
}

func runTail(cfg *config.Config, key string) int {
	def, ok := cfg.Service(key)
	if !ok {
		msg := fmt.Sprintf("unknown service %q", key)
		if matches := fuzzy.Find(key, cfg.Keys()); len(matches) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", matches[0].Str)
		}
		fmt.Fprintln(os.Stderr, "Error: "+msg)
		return exitFailure
	}
	if def.LogFilePath == "" {
		fmt.Fprintf(os.Stderr, "Error: no log file configured for %s\n", def.Key)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Following %s (Ctrl-C to stop)\n", def.LogFilePath)
	for line := range logtail.New(def.LogFilePath).Run(ctx) {
		fmt.Println(line)
	}
	return exitOK
}

func runBundle(cfg *config.Config, outPath string) int {
	candidates := []string{cfg.Path}
	for _, def := range cfg.Services() {
		if def.LogFilePath != "" {
			candidates = append(candidates, def.LogFilePath)
		}
		if def.LicenseFile != "" {
			candidates = append(candidates, def.LicenseFile)
		}
	}

	included, err := bundle.Write(outPath, candidates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing support bundle: %v\n", err)
		return exitFailure
	}
	fmt.Printf("Wrote %s with %d file(s):\n", outPath, len(included))
	for _, path := range included {
		fmt.Printf("  %s\n", path)
	}
	return exitOK
}
