package cli

import (
	"fmt"
	"os"

	"github.com/mirkobrombin/dnsforge/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or edit the DNS/DHCP model by dotted key",
	Long: `Read or edit the DNS/DHCP model by dotted key, e.g. "dns.upstreams"
or "dns.dhcp.hosts.0". Values that parse as JSON are stored as such, anything
else is stored as a string.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the value stored under key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := config.GetKey(loadModel(), args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(raw)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Replace the value stored under key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		editModel(args[0], args[1], config.SetKey)
	},
}

var configAppendCmd = &cobra.Command{
	Use:   "append [key] [value]",
	Short: "Append value to the list stored under key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		editModel(args[0], args[1], config.AppendKey)
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configAppendCmd)
}

func editModel(key, value string, edit func(*config.Config, string, string) (*config.Config, error)) {
	updated, err := config.ModifyFile(config.GlobalConf.ConfigFile, func(conf *config.Config) (*config.Config, error) {
		return edit(conf, key, value)
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	raw, _ := config.GetKey(updated, key)
	fmt.Printf("%s = %s\n", key, raw)
}
