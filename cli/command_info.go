package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/arashi-dev/arashi/internal/npm"
	"github.com/ije/gox/term"
)

const infoHelpMessage = `Print the package layout and the locked packages of the project.

Usage: arashi info [options]

Options:
  --root       Project root directory, default is current directory
  --help, -h   Show help message
`

// Info prints the package layout and the locked packages of a project.
func Info() {
	rootDir := flag.String("root", "", "project root directory")
	_, help := parseCommandFlags()

	if help {
		fmt.Print(infoHelpMessage)
		return
	}

	root, err := resolveRootDir(*rootDir)
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		os.Exit(1)
	}
	lock, err := npm.ReadLockfile(root)
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		os.Exit(1)
	}
	printLockfile(lock)
}

func printLockfile(lock *npm.Lockfile) {
	fmt.Println(term.Dim("layout:   ") + lock.Layout.String())
	fmt.Println(term.Dim("lockfile: ") + lock.Filename)
	fmt.Println(term.Dim(fmt.Sprintf("packages: %d", len(lock.Packages))))
	for _, pkg := range lock.Packages {
		fmt.Println("  " + pkg.Name + term.Dim("@"+pkg.Version))
	}
}
