package cli

import (
	"fmt"
	"os"

	"github.com/arashi-dev/arashi/server"
)

const helpMessage = "\033[30marashi - A dev server that serves npm dependencies as browser modules on demand.\033[0m" + `

Usage: arashi [command] [options]

Commands:
  dev                   Serve the project in development mode
  info                  Print the package layout and the locked packages of the project
  version               Show the version

Options:
  --version, -v         Show the version
  --help, -h            Display this help message
`

// Run dispatches the command of the process arguments.
func Run() {
	if len(os.Args) < 2 {
		fmt.Print(helpMessage)
		return
	}
	switch command := os.Args[1]; command {
	case "dev":
		Dev()
	case "info":
		Info()
	case "version":
		fmt.Println("arashi " + server.VERSION)
	default:
		for _, arg := range os.Args[1:] {
			if arg == "--version" {
				fmt.Println("arashi " + server.VERSION)
				return
			}
			if arg == "-v" {
				fmt.Println(server.VERSION)
				return
			}
		}
		fmt.Print(helpMessage)
	}
}
