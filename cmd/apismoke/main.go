package main

import (
	"github.com/loykin/apismoke/cmd/apismoke/config"
	"github.com/loykin/apismoke/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "apismoke",
	Short: "Run the inventory API smoke scenario: register, login, add product, update quantity, list",
	Long: `apismoke drives a fixed five-step scenario against an inventory REST service and
prints PASSED/FAILED per step. The exit status is 0 only when every step passed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario(cmd.Context(), viper.GetViper(), cmd.OutOrStdout())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the smoke scenario (default command)",
	RunE:  rootCmd.RunE,
}

func init() {
	v := viper.GetViper()
	config.SetDefaults(v)
	// Environment variables support: APISMOKE_CONFIG, APISMOKE_BASE_URL, APISMOKE_CREDENTIALS_PASSWORD, ...
	config.BindEnv(v)

	rootCmd.PersistentFlags().String("config", constants.DefaultConfigPath, "path to a config yaml (like examples/apismoke.yaml)")
	rootCmd.PersistentFlags().String("base-url", constants.DefaultBaseURL, "base URL of the inventory service")
	_ = v.BindPFlag(config.KeyConfig, rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag(config.KeyBaseURL, rootCmd.PersistentFlags().Lookup("base-url"))

	historyCmd.Flags().Int("limit", 20, "number of most recent runs to list")
	historyCmd.Flags().String("run", "", "show the steps of one run id")
	validateCmd.Flags().Bool("print", false, "print the effective configuration with secrets masked")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	exitFor(exitHandler, rootCmd.Execute())
}
