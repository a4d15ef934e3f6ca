// Command demoserver serves pages whose security headers can be switched
// between profiles, for trying out hdrscan.
// Usage: go run ./cmd/demoserver [port] [profile]
// Default port: 9999, default profile: insecure
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/raysh454/hdrscan/internal/demoserver"
)

func main() {
	cfg := demoserver.DefaultConfig()

	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}
	if len(os.Args) > 2 {
		cfg.InitialProfile = os.Args[2]
		known := false
		for _, p := range demoserver.Profiles {
			known = known || p == cfg.InitialProfile
		}
		if !known {
			log.Fatalf("Unknown profile %q (want one of %s)", os.Args[2], strings.Join(demoserver.Profiles, ", "))
		}
	}

	fmt.Println("===========================================")
	fmt.Println("   hdrscan demo server")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Every page can be switched between header profiles:")
	for _, p := range demoserver.Profiles {
		fmt.Printf("  - %s\n", p)
	}
	fmt.Println()
	fmt.Println("Pages:")
	for _, p := range demoserver.GetAllPages() {
		fmt.Printf("  %-10s %s\n", p.Path, p.Description)
	}
	fmt.Println()
	fmt.Printf("Control panel: http://%s/demo/control\n", cfg.Addr())
	fmt.Println()

	server := demoserver.NewDemoServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
