package config_test

import (
	"fmt"

	"github.com/ajitpratap0/nebulaframe/pkg/config"
)

func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Log level: %s\n", cfg.Log.Level)
	fmt.Printf("Join type: %s\n", cfg.Join.Type)
	fmt.Printf("Arrow mode: %s\n", cfg.Arrow.Mode)

	// Output:
	// Log level: info
	// Join type: inner
	// Arrow mode: lenient
}

func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Join.Type = "cross"

	fmt.Println(cfg.Validate())

	// Output:
	// config: invalid join type "cross"
}
