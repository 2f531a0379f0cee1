package config_test

import (
	"fmt"

	"github.com/wonny/portfolio-analyzer/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Price source: %s\n", cfg.Analysis.PriceSource)
	fmt.Printf("RANSAC trials: %d\n", cfg.Analysis.RansacMaxTrials)
	fmt.Printf("Workers: %d\n", cfg.Analysis.Workers)
}
