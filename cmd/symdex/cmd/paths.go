package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	symerrors "github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/keywords"
	"github.com/Aman-CERP/symdex/internal/output"
)

func newPathsCmd(_ *rootOptions) *cobra.Command {
	var (
		treeFile       string
		suggestionFile string
		format         string
	)

	cmd := &cobra.Command{
		Use:   "paths [keywords...]",
		Short: "Build search phrases from keywords",
		Long: `Build search phrases from a keyword tree or a flat keyword list.

With --tree the file holds a JSON array of {"keyword", "parent", "layer"}
nodes; each node becomes a phrase rooted at its top-level ancestor. Without
a usable tree the positional keywords are joined to the first capitalised
keyword.

With --suggestion the file holds an assistant reply with search_keywords and
keywords fields. A reply that is not JSON falls back to keywords taken from
the positional arguments.`,
		Example: `  symdex paths spawn Enemy wave
  symdex paths --tree keywords.json
  symdex paths --suggestion reply.json how do enemies spawn`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return symerrors.ValidationError(err.Error(), nil)
			}
			out := output.New(cmd.OutOrStdout(), f)

			if suggestionFile != "" {
				reply, err := readInput(cmd, suggestionFile)
				if err != nil {
					return err
				}
				s := keywords.Interpret(reply, strings.Join(args, " "))
				if f == output.FormatJSON {
					return out.JSON(s)
				}
				if s.AssistantMessage != "" {
					out.Status("", s.AssistantMessage)
				}
				return out.Paths(s.Phrases)
			}

			var tree []keywords.KeywordNode
			if treeFile != "" {
				data, err := readInput(cmd, treeFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal([]byte(data), &tree); err != nil {
					return symerrors.ValidationError(fmt.Sprintf("tree file %s is not a JSON array of keyword nodes", treeFile), err)
				}
			}
			return out.Paths(keywords.BuildPaths(tree, args))
		},
	}

	cmd.Flags().StringVar(&treeFile, "tree", "", "JSON file with a keyword tree ('-' for stdin)")
	cmd.Flags().StringVar(&suggestionFile, "suggestion", "", "File with an assistant keyword reply ('-' for stdin)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// readInput reads path, or the command's stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", symerrors.IOError(fmt.Sprintf("failed to read %s", path), err).WithDetail("path", path)
	}
	return string(data), nil
}
