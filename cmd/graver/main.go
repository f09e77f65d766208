// Command graver is a small workbench for graver documents: reformat them,
// convert them to JSON for inspection, or sanity-check a document together
// with its tactic manifest.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravertext/graver"
	"github.com/gravertext/graver/internal/token"
	"github.com/gravertext/graver/tactic"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "fmt":
		fmtCmd(os.Args[2:])
	case "json":
		jsonCmd(os.Args[2:])
	case "check":
		checkCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "graver CLI\n\nUsage:\n  graver fmt [-w] file\n  graver json file\n  graver check [-config graver.yaml] [-manifest file ...] document")
}

// config is the optional YAML configuration for check.
type config struct {
	Manifests []string `yaml:"manifests"`
}

func fmtCmd(args []string) {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	write := fs.Bool("w", false, "write result back to the file instead of stdout")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	out := token.Indent(data)
	if *write {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			fatal(err)
		}
		return
	}
	os.Stdout.Write(out)
}

func jsonCmd(args []string) {
	fs := flag.NewFlagSet("json", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	out, err := graver.ToJSON(data)
	if err != nil {
		fatal(err)
	}
	os.Stdout.Write(out)
	fmt.Println()
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config listing manifest files")
	var manifests multiFlag
	fs.Var(&manifests, "manifest", "tactic manifest file (repeatable)")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	paths := []string(manifests)
	if *cfgPath != "" {
		raw, err := os.ReadFile(*cfgPath)
		if err != nil {
			fatal(err)
		}
		var cfg config
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			fatal(err)
		}
		paths = append(paths, cfg.Manifests...)
	}

	loaded := make([]*tactic.Manifest, 0, len(paths))
	for _, p := range paths {
		m, err := tactic.Load(p)
		if err != nil {
			fatal(err)
		}
		loaded = append(loaded, m)
	}
	if _, err := tactic.Merge(loaded...); err != nil {
		fatal(err)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	if _, err := graver.ParseLoose(data); err != nil {
		fatal(err)
	}
	fmt.Println("ok")
}

type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprint([]string(*m)) }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "graver:", err)
	os.Exit(1)
}
