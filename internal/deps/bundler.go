package deps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// Bundler builds an entry module and its dependencies into a single ES module file.
type Bundler interface {
	Bundle(ctx context.Context, entry string, outfile string) error
}

// BuildError is returned when the bundler fails to build a package.
type BuildError struct {
	Specifier string
	// Output is the diagnostic output of the bundler.
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	msg := "build failed"
	if e.Specifier != "" {
		msg = fmt.Sprintf("build %s failed", e.Specifier)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// DefaultCommand is the bundler command used when none is configured.
var DefaultCommand = []string{"npx", "esbuild"}

// ExecBundler runs an esbuild compatible command line as a subprocess.
type ExecBundler struct {
	Command []string
	Target  string
	// Dir is the working directory of the subprocess.
	Dir string
}

// Args returns the full argument list for building the entry to outfile.
func (b *ExecBundler) Args(entry string, outfile string) []string {
	command := b.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	target := b.Target
	if target == "" {
		target = "es2020"
	}
	args := make([]string, 0, len(command)+7)
	args = append(args, command...)
	return append(
		args,
		entry,
		"--bundle",
		"--format=esm",
		"--platform=browser",
		"--target="+target,
		"--outfile="+outfile,
		`--define:process.env.NODE_ENV="development"`,
		"--log-level=error",
	)
}

func (b *ExecBundler) Bundle(ctx context.Context, entry string, outfile string) error {
	args := b.Args(entry, outfile)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = b.Dir
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &BuildError{Output: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

// ESBuildBundler builds packages in process with the esbuild API.
type ESBuildBundler struct {
	Target string
	Dir    string
}

func (b *ESBuildBundler) Bundle(ctx context.Context, entry string, outfile string) error {
	target, ok := Targets[b.Target]
	if !ok {
		target = esbuild.ES2020
	}
	ret := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: b.Dir,
		Outfile:       outfile,
		Write:         true,
		Bundle:        true,
		Format:        esbuild.FormatESModule,
		Platform:      esbuild.PlatformBrowser,
		Target:        target,
		LogLevel:      esbuild.LogLevelSilent,
		Define: map[string]string{
			"process.env.NODE_ENV": `"development"`,
		},
	})
	if len(ret.Errors) > 0 {
		msgs := esbuild.FormatMessages(ret.Errors, esbuild.FormatMessagesOptions{Kind: esbuild.ErrorMessage})
		return &BuildError{Output: strings.TrimSpace(strings.Join(msgs, "")), Err: errors.New(ret.Errors[0].Text)}
	}
	return nil
}

// Targets maps the build target names to esbuild targets.
var Targets = map[string]esbuild.Target{
	"es2015": esbuild.ES2015,
	"es2016": esbuild.ES2016,
	"es2017": esbuild.ES2017,
	"es2018": esbuild.ES2018,
	"es2019": esbuild.ES2019,
	"es2020": esbuild.ES2020,
	"es2021": esbuild.ES2021,
	"es2022": esbuild.ES2022,
	"es2023": esbuild.ES2023,
	"es2024": esbuild.ES2024,
	"esnext": esbuild.ESNext,
}
