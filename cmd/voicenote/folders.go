package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"voicenote/internal/config"
	"voicenote/internal/folders"
)

var foldersJSON bool

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the folders a note can be filed under",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFolders(cmd.OutOrStdout(), foldersJSON)
	},
}

func init() {
	foldersCmd.Flags().BoolVar(&foldersJSON, "json", false, "Output as JSON")
}

func runFolders(out io.Writer, asJSON bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	list, err := folders.Load(cfg.Folders.Path)
	if err != nil {
		return err
	}

	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintf(out, "no folders (%s)\n", cfg.Folders.Path)
		return nil
	}
	for _, folder := range list {
		fmt.Fprintf(out, "%s\t%s\n", folder.ID, folder.Name)
	}
	return nil
}
