// Command postctl renders and inspects posts from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/debemdeboas/postdesk/internal/config"
	"github.com/debemdeboas/postdesk/internal/kv"
	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/debemdeboas/postdesk/internal/render"
	"github.com/debemdeboas/postdesk/internal/repository"
	"github.com/debemdeboas/postdesk/internal/schema"
	"gopkg.in/yaml.v3"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

const usage = `usage: postctl <command> [flags]

commands:
  types                         list content types and their fields
  render -type T -fields FILE   render a post from a yaml or toml field file
  compose -type T               enter fields interactively and render
  stats -config FILE            show post counters
  templates -config FILE        list saved templates`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func run(cmd string, args []string, in io.Reader, out io.Writer) error {
	switch cmd {
	case "types":
		return listTypes(out)
	case "render":
		fs := flag.NewFlagSet("render", flag.ContinueOnError)
		typ := fs.String("type", string(model.General), "content type")
		file := fs.String("fields", "", "yaml or toml file with field values")
		if err := fs.Parse(args); err != nil {
			return err
		}
		t, err := model.ParseContentType(*typ)
		if err != nil {
			return err
		}
		fields, err := readFields(*file)
		if err != nil {
			return err
		}
		return renderTo(out, t, fields)
	case "compose":
		fs := flag.NewFlagSet("compose", flag.ContinueOnError)
		typ := fs.String("type", string(model.General), "content type")
		if err := fs.Parse(args); err != nil {
			return err
		}
		t, err := model.ParseContentType(*typ)
		if err != nil {
			return err
		}
		fields, err := prompt(t, in, out)
		if err != nil {
			return err
		}
		return renderTo(out, t, fields)
	case "stats", "templates":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		cfgPath := fs.String("config", "config.yaml", "configuration file")
		envFile := fs.String("env", ".env", "env file with storage secrets")
		if err := fs.Parse(args); err != nil {
			return err
		}
		ks, closer, err := openKeyspace(*cfgPath, *envFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		if cmd == "stats" {
			return showStats(out, repository.NewStatsRepository(ks).Snapshot())
		}
		return showTemplates(out, repository.NewTemplateRepository(ks, nil).List())
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func listTypes(out io.Writer) error {
	for _, s := range schema.All() {
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("%s %s (%s)", s.Emoji, s.DisplayName, s.Type)))
		for _, f := range s.Fields {
			marker := " "
			if f.Required {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-16s %s\n", marker, f.Name, f.Label)
		}
	}
	return nil
}

// readFields decodes a flat string map, choosing the format by extension.
func readFields(path string) (model.FieldMap, error) {
	if path == "" {
		return nil, errors.New("--fields is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeFields(filepath.Ext(path), data)
}

func decodeFields(ext string, data []byte) (model.FieldMap, error) {
	fields := model.FieldMap{}
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &fields); err != nil {
			return nil, fmt.Errorf("parsing toml fields: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("parsing yaml fields: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported field file extension %q", ext)
	}
	return fields, nil
}

// prompt asks for every field of t in order. An empty line leaves the field
// unset; "quit" stops early.
func prompt(t model.ContentType, in io.Reader, out io.Writer) (model.FieldMap, error) {
	s := schema.MustLookup(t)
	fields := model.FieldMap{}
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Enter values one by one. Leave empty to skip, type 'quit' to stop.")
	for _, f := range s.Fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		fmt.Fprint(out, promptStyle.Render(label+": "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" {
			break
		}
		if line != "" {
			fields[f.Name] = line
		}
	}
	return fields, scanner.Err()
}

func renderTo(out io.Writer, t model.ContentType, fields model.FieldMap) error {
	artifact, err := render.Render(t, fields)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, boxStyle.Render(artifact))
	fmt.Fprintln(out, outputStyle.Render(fmt.Sprintf("%d characters", len([]rune(artifact)))))
	return nil
}

func openKeyspace(cfgPath, envFile string) (*kv.Keyspace, io.Closer, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.LoadEnv(envFile)
	store, closer, err := kv.Open(context.Background(), cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return kv.NewKeyspace(store, cfg.Storage.Namespace), closer, nil
}

func showStats(out io.Writer, s model.StatsRecord) error {
	fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("Total posts: %d", s.TotalPosts)))
	for _, t := range model.AllContentTypes() {
		fmt.Fprintf(out, "  %s %-14s %d\n", schema.Emoji(t), schema.DisplayName(t), s.PerType[t])
	}
	if !s.LastUpdated.IsZero() {
		fmt.Fprintln(out, outputStyle.Render("Last updated "+s.LastUpdated.Format("2006-01-02 15:04")))
	}
	return nil
}

func showTemplates(out io.Writer, list []model.Template) error {
	if len(list) == 0 {
		fmt.Fprintln(out, outputStyle.Render("No saved templates"))
		return nil
	}
	for _, tpl := range list {
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("#%d %s", tpl.ID, tpl.Name)))
		fmt.Fprintf(out, "  %s %s\n", schema.Emoji(tpl.ContentType), tpl.Preview(60))
	}
	return nil
}
