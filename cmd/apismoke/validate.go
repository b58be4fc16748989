package main

import (
	"fmt"

	"github.com/loykin/apismoke/cmd/apismoke/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without contacting the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := doc.Validate(); err != nil {
			_, _ = fmt.Fprintf(out, "configuration is invalid:\n%v\n", err)
			return fmt.Errorf("invalid configuration")
		}
		if printCfg, _ := cmd.Flags().GetBool("print"); printCfg {
			b, err := doc.MarshalMasked()
			if err != nil {
				return err
			}
			_, _ = out.Write(b)
		}
		_, _ = fmt.Fprintln(out, "configuration is valid")
		return nil
	},
}
