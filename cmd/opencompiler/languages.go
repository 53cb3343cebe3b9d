package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/opencompiler/internal/profile"
)

var languagesCmd = &cobra.Command{
	Use:     "languages",
	Aliases: []string{"langs"},
	Short:   "List the supported languages",
	RunE:    runLanguages,
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func runLanguages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := profile.Load(cfg.Languages.File)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render(idStyle.Render("ID")+nameStyle.Render("NAME")+kindStyle.Render("KIND")+"COMMAND"))
	for _, p := range registry.Profiles() {
		kind := "interpreted"
		command := p.Run
		if p.NeedsCompile() {
			kind = "compiled"
			command = p.Compile
		}
		fmt.Fprintln(out,
			idStyle.Render(p.ID)+
				nameStyle.Render(p.Name)+
				kindStyle.Render(kind)+
				dimStyle.Render(strings.Join(command, " ")))
	}
	return nil
}
