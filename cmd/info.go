package cmd

import (
	"fmt"

	"licman/internal/config"
)

func runInfo(cfg *config.Config) {
	fmt.Println("License service manager")
	fmt.Println("Managed services:")
	fmt.Printf("  %-9s %s (FlexLM under NSSM)\n", cfg.Autodesk.Key, cfg.Autodesk.Name)
	fmt.Printf("  %-9s %s (McNeel Zoo)\n", cfg.Zoo.Key, cfg.Zoo.Name)
	fmt.Println("Paths:")
	fmt.Printf("  config:       %s\n", cfg.Path)
	fmt.Printf("  lmgrd:        %s\n", cfg.Autodesk.ExecutablePath)
	fmt.Printf("  license file: %s\n", cfg.Autodesk.LicenseFile)
	fmt.Printf("  license log:  %s\n", cfg.Autodesk.LogFilePath)
	fmt.Printf("  Zoo admin:    %s\n", cfg.Zoo.AdminExePath)
	fmt.Println("Status legend:")
	fmt.Println("  ● active    ○ stopped    ◐ process running without service    ? unknown")
}
