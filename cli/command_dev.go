package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/arashi-dev/arashi/server"
	"github.com/ije/gox/term"
)

const devHelpMessage = `Serve the project in development mode, building npm dependencies on demand.

Usage: arashi dev [options]

Options:
  --port       Port to serve on, default is 3000
  --root       Project root directory, default is current directory
  --config     Config file, default is <root>/arashi.json
  --help, -h   Show help message
`

// Dev serves a project in development mode.
func Dev() {
	port := flag.Int("port", 0, "port to serve on")
	rootDir := flag.String("root", "", "project root directory")
	configFile := flag.String("config", "", "config file")
	_, help := parseCommandFlags()

	if help {
		fmt.Print(devHelpMessage)
		return
	}

	config, err := loadConfig(*rootDir, *configFile)
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		os.Exit(1)
	}
	if *port > 0 && *port < 65536 {
		config.Port = uint16(*port)
	}

	err = server.Serve(config)
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		os.Exit(1)
	}
}
