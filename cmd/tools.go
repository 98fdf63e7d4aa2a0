package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/dependency"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Print the JSON schema of every tool")
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig("warn")
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if toolsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(container.Registry().Definitions())
	}
	printTools(out, container.Registry().List())
	return nil
}

func printTools(w io.Writer, list []schema.Tool) {
	for _, t := range list {
		fmt.Fprintf(w, "%-12s %s\n", t.Name(), t.Description())
		s := t.Schema()
		names := make([]string, 0, len(s.Fields))
		for name := range s.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			f := s.Fields[name]
			flag := "optional"
			if isRequired(s, name) {
				flag = "required"
			}
			line := fmt.Sprintf("  - %s (%s, %s)", name, f.Kind, flag)
			if len(f.Enum) > 0 {
				line += " one of " + strings.Join(f.Enum, "|")
			}
			fmt.Fprintln(w, line)
		}
	}
}

func isRequired(s schema.ParameterSchema, name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
