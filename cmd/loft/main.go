// cmd/loft/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"loft/client"
	"loft/internal/search"
	"loft/internal/tree"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "loft",
	Short: "Loft is a versioned workspace for a web-based file editor",
	Long: `Loft stores a mutable working tree alongside an append-only history of
revisions. Every command talks to a running loft server over HTTP.`,
}

func newClient() *client.Client {
	return client.New(serverURL)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:3000", "loft server base URL")

	var treeCmd = &cobra.Command{
		Use:   "tree [path]",
		Short: "List the working tree",
		Long:  `Prints the directory tree under the given path of the current revision.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}

			nodes, err := newClient().List(path)
			if err != nil {
				return fmt.Errorf("listing tree: %w", err)
			}

			if len(nodes) == 0 {
				fmt.Println("(empty)")
				return nil
			}
			printTree(nodes, 0)
			return nil
		},
	}

	var searchCmd = &cobra.Command{
		Use:   "search <query> [path]",
		Short: "Search file names and contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}

			hits, err := newClient().Search(path, args[0])
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}

			if len(hits) == 0 {
				fmt.Println("No matches")
				return nil
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			for _, h := range hits {
				marker := yellow("content")
				if h.Matched == search.MatchedName {
					marker = green("name")
				}
				fmt.Printf("%s\t%s\n", marker, h.Path)
			}
			return nil
		},
	}

	var readCmd = &cobra.Command{
		Use:   "read <path>",
		Short: "Print a file from the working tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := newClient().Read(args[0])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			fmt.Print(content)
			return nil
		},
	}

	var writeCmd = &cobra.Command{
		Use:   "write <path> [content]",
		Short: "Write a file in the working tree",
		Long:  `Writes content to the given path, creating parent directories as needed. Reads from stdin when content is omitted.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content string
			if len(args) > 1 {
				content = strings.Join(args[1:], " ")
			} else {
				data, err := os.ReadFile("/dev/stdin")
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				content = string(data)
			}

			if err := newClient().Save(args[0], content); err != nil {
				return fmt.Errorf("writing file: %w", err)
			}
			fmt.Println("Wrote", args[0])
			return nil
		},
	}

	var rmCmd = &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or directory from the working tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Delete(args[0]); err != nil {
				return fmt.Errorf("deleting: %w", err)
			}
			fmt.Println("Deleted", args[0])
			return nil
		},
	}

	var mkdirCmd = &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory in the working tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Mkdir(args[0]); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
			fmt.Println("Created", args[0])
			return nil
		},
	}

	var mvCmd = &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Move or rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Rename(args[0], args[1]); err != nil {
				return fmt.Errorf("renaming: %w", err)
			}
			fmt.Printf("Renamed %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	var snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Freeze the working tree as a new revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := newClient().Snapshot()
			if err != nil {
				return fmt.Errorf("creating snapshot: %w", err)
			}
			fmt.Println("Created revision", id)
			return nil
		},
	}

	var revisionsCmd = &cobra.Command{
		Use:   "revisions",
		Short: "List stored revisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			latest, list, err := newClient().Revisions()
			if err != nil {
				return fmt.Errorf("listing revisions: %w", err)
			}

			cyan := color.New(color.FgCyan).SprintFunc()
			for _, id := range list {
				if id == latest {
					fmt.Printf("%s %d (current)\n", cyan("*"), id)
				} else {
					fmt.Printf("  %d\n", id)
				}
			}
			return nil
		},
	}

	var importCmd = &cobra.Command{
		Use:   "import <archive.zip>",
		Short: "Import a zip archive as a new revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading archive: %w", err)
			}

			id, err := newClient().Import(data)
			if err != nil {
				return fmt.Errorf("importing archive: %w", err)
			}
			fmt.Println("Imported as revision", id)
			return nil
		},
	}

	var fetchCmd = &cobra.Command{
		Use:   "fetch <rev> <path> [out]",
		Short: "Fetch a file from a stored revision",
		Long:  `Downloads a single file from the named revision. Writes to stdout unless an output path is given.`,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing revision id: %w", err)
			}

			data, err := newClient().Fetch(rev, args[1])
			if err != nil {
				return fmt.Errorf("fetching file: %w", err)
			}

			if len(args) > 2 {
				if err := os.WriteFile(args[2], data, 0644); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
				fmt.Println("Wrote", args[2])
				return nil
			}
			os.Stdout.Write(data)
			return nil
		},
	}

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(revisionsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(fetchCmd)
}

func printTree(nodes []tree.Node, depth int) {
	blue := color.New(color.FgBlue).SprintFunc()
	indent := strings.Repeat("  ", depth)

	for _, n := range nodes {
		if n.IsDirectory {
			fmt.Printf("%s%s/\n", indent, blue(n.Name))
			printTree(n.Children, depth+1)
		} else {
			fmt.Printf("%s%s\n", indent, n.Name)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
