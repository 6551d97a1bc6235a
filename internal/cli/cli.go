package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mirkobrombin/dnsforge/internal/api"
	"github.com/mirkobrombin/dnsforge/internal/config"
	"github.com/mirkobrombin/dnsforge/internal/dns"
	"github.com/mirkobrombin/dnsforge/internal/dnsmasq"
	"github.com/mirkobrombin/dnsforge/internal/logger"
	"github.com/mirkobrombin/dnsforge/internal/sysinfo"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var configPath string
var globalConfigPath string
var debugMode bool
var noTest bool
var probeTimeout time.Duration
var saveUser string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dnsforge",
	Short: "dnsforge renders, tests and installs dnsmasq configurations",
	Long: `dnsforge turns a structured DNS/DHCP model into a dnsmasq configuration
file, checks it with the resolver's own parser and only then replaces the
live file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := config.LoadGlobalConfig(globalConfigPath); err != nil {
			fmt.Printf("Error loading global config: %v\n", err)
			os.Exit(1)
		}
		if configPath != "" {
			config.GlobalConf.ConfigFile = configPath
		}
		if debugMode {
			config.GlobalConf.Debug = true
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(importLegacyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(interfacesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(genPassCmd)

	installCmd.Flags().BoolVar(&noTest, "no-test", false, "Install without testing the config with the resolver")
	genPassCmd.Flags().StringVar(&saveUser, "save-as", "", "Store the hash as the API account of this user in the global config")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 2*time.Second, "Per-upstream query timeout")

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the DNS/DHCP model file")
	rootCmd.PersistentFlags().StringVar(&globalConfigPath, "global-config", "", "Path to specific global configuration file")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Enable debug logging")
}

func newConsoleLogger() *logger.Logger {
	log := logger.NewConsoleLogger(os.Stderr)
	log.SetDebug(config.GlobalConf.Debug)
	return log
}

func newInstaller(log *logger.Logger) *dnsmasq.Installer {
	in := dnsmasq.NewInstaller(config.GlobalConf.Paths, config.GlobalConf.ResolverBinary, log)
	in.CheckInterface = sysinfo.InterfaceExists
	return in
}

func loadModel() *config.Config {
	conf, err := config.Load(config.GlobalConf.ConfigFile)
	if err != nil {
		fmt.Printf("Error loading %s: %v\n", config.GlobalConf.ConfigFile, err)
		os.Exit(1)
	}
	return conf
}

// reportPipelineError prints a rejected config together with the offending
// line and exits.
func reportPipelineError(err error) {
	var verr *dnsmasq.ValidationError
	if errors.As(err, &verr) {
		fmt.Printf("dnsmasq rejected %s: %v\n", verr.Path, verr)
		os.Exit(2)
	}
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the dnsmasq config generated from the model",
	Run: func(cmd *cobra.Command, args []string) {
		out, err := dnsmasq.NewRenderer(config.GlobalConf.Paths).Bytes(loadModel())
		if err != nil {
			fmt.Printf("Error rendering config: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Write the staged config and test it without installing",
	Run: func(cmd *cobra.Command, args []string) {
		in := newInstaller(newConsoleLogger())
		if err := in.Test(context.Background(), loadModel()); err != nil {
			reportPipelineError(err)
		}
		fmt.Printf("%s: OK\n", in.Renderer.Paths.StagedConf)
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Render, test and install the dnsmasq config",
	Run: func(cmd *cobra.Command, args []string) {
		in := newInstaller(newConsoleLogger())
		test := config.GlobalConf.TestConfig && !noTest
		if err := in.Install(context.Background(), loadModel(), test); err != nil {
			reportPipelineError(err)
		}
		fmt.Printf("Installed %s\n", in.Renderer.Paths.LiveConf)
	},
}

var importLegacyCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Import legacy static DHCP leases and CNAME records into the model",
	Run: func(cmd *cobra.Command, args []string) {
		log := newConsoleLogger()
		var imported int
		var importErr error
		_, err := config.ModifyFile(config.GlobalConf.ConfigFile, func(conf *config.Config) (*config.Config, error) {
			imported, importErr = dnsmasq.ImportLegacy(conf, config.GlobalConf.Paths, log)
			return conf, nil
		})
		if err != nil {
			fmt.Printf("Error updating %s: %v\n", config.GlobalConf.ConfigFile, err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d entries\n", imported)
		if importErr != nil {
			fmt.Printf("Error: %v\n", importErr)
			os.Exit(1)
		}
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [upstream...]",
	Short: "Check that upstream DNS servers answer",
	Long:  `Send an NS query for the root zone to each upstream. Without arguments the upstreams of the model are probed.`,
	Run: func(cmd *cobra.Command, args []string) {
		upstreams := args
		if len(upstreams) == 0 {
			upstreams = loadModel().DNS.Upstreams
		}
		if len(upstreams) == 0 {
			fmt.Println("No upstreams configured.")
			os.Exit(1)
		}

		output := termenv.NewOutput(os.Stdout)
		failed := false
		for _, res := range dns.ProbeAll(context.Background(), upstreams, probeTimeout) {
			if res.OK() {
				fmt.Printf("- %s (%s): %s %s\n", res.Upstream, res.Address,
					output.String("OK").Foreground(output.Color("2")), res.RTT.Round(time.Millisecond))
				continue
			}
			failed = true
			reason := res.Err
			if reason == "" {
				reason = res.Rcode
			}
			fmt.Printf("- %s (%s): %s %s\n", res.Upstream, res.Address,
				output.String("FAIL").Foreground(output.Color("1")), reason)
		}
		if failed {
			os.Exit(1)
		}
	},
}

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List the host's network interfaces",
	Run: func(cmd *cobra.Command, args []string) {
		ifaces, err := sysinfo.Interfaces()
		if err != nil {
			fmt.Printf("Error listing interfaces: %v\n", err)
			os.Exit(1)
		}
		for _, iface := range ifaces {
			fmt.Printf("- %s %v\n", iface.Name, iface.Addrs)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show host and installed config information",
	Run: func(cmd *cobra.Command, args []string) {
		if host, err := sysinfo.HostInfo(); err == nil {
			fmt.Printf("Host:     %s (%s, kernel %s), up %s\n", host.Hostname, host.Platform, host.Kernel, host.Uptime)
		}

		fmt.Printf("Model:    %s\n", config.GlobalConf.ConfigFile)
		fmt.Printf("Resolver: %s (test before install: %v)\n", config.GlobalConf.ResolverBinary, config.GlobalConf.TestConfig)

		live := config.GlobalConf.Paths.LiveConf
		info, err := os.Stat(live)
		if err != nil {
			fmt.Printf("Config:   %s not installed\n", live)
			return
		}
		fmt.Printf("Config:   %s, %s, updated %s\n", live, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		if !config.GlobalConf.EnableAPI {
			fmt.Println("The API is disabled in the global configuration.")
			os.Exit(1)
		}
		log, err := logger.NewLogger("api", logger.Fields{"component": "api"})
		if err != nil {
			fmt.Printf("Error creating logger: %v\n", err)
			os.Exit(1)
		}
		log.SetDebug(config.GlobalConf.Debug)

		s := api.NewServer(newInstaller(log), config.GlobalConf.ConfigFile, config.GlobalConf.TestConfig, log)
		if err := s.ListenAndServe(config.GlobalConf.APIPort); err != nil {
			log.Errorf("[API] Error: %v", err)
			os.Exit(1)
		}
	},
}

// genPassCmd generates a Bcrypt password hash.
var genPassCmd = &cobra.Command{
	Use:   "gen-pass [password]",
	Short: "Generate a Bcrypt hash for a password",
	Long:  `Generate a Bcrypt hash for a password. If no password is provided as an argument, you will be prompted to enter one securely.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   genPass,
}

func genPass(cmd *cobra.Command, args []string) {
	var password []byte
	var err error

	if len(args) > 0 {
		password = []byte(args[0])
	} else {
		fmt.Print("Enter Password: ")
		password, err = term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			os.Exit(1)
		}
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	if saveUser == "" {
		fmt.Println(string(hash))
		return
	}

	config.GlobalConf.Account.Username = saveUser
	config.GlobalConf.Account.PasswordHash = string(hash)
	if err := config.SaveGlobalConfig(globalConfigPath); err != nil {
		fmt.Printf("Error saving global config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("API account %s saved\n", saveUser)
}
